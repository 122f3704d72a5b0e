package swiftshare

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/swiftshare/file"
	"github.com/opd-ai/swiftshare/journal"
	"github.com/opd-ai/swiftshare/session"
	"github.com/opd-ai/swiftshare/transfer"
)

// DefaultJournalTimeout bounds a single journal write.
const DefaultJournalTimeout = 5 * time.Second

// ErrNoDestination is returned by New when neither a resolver nor a download
// directory is configured and receiving is therefore impossible.
var ErrNoDestination = errors.New("no download directory or path resolver configured")

// Options contains configuration options for creating an Engine.
type Options struct {
	// DownloadDir receives incoming files when Resolver is nil.
	DownloadDir string
	// Resolver maps announced names to local paths. It takes precedence
	// over DownloadDir.
	Resolver file.PathResolver
	// Transfer tunes chunking, timeouts and sockets.
	Transfer transfer.Config
	// Journal records finished attempts. A MemoryJournal is used when nil.
	Journal journal.Journal
	// Checksums enables BLAKE2b digests of completed files in the journal.
	Checksums bool
	// RequireDestination makes New fail without a resolver or download dir.
	RequireDestination bool
}

// NewOptions creates a new default Options.
func NewOptions() *Options {
	return &Options{
		Transfer:  transfer.DefaultConfig(),
		Checksums: true,
	}
}

// Engine runs at most one receiver and one sender over a shared session.
type Engine struct {
	options *Options
	session *session.Session
	journal journal.Journal

	receiver *transfer.Receiver
	sender   *transfer.Sender

	mu      sync.Mutex
	killed  bool
	records sync.WaitGroup
}

// New creates a new Engine with the given options.
func New(options *Options) (*Engine, error) {
	if options == nil {
		options = NewOptions()
	}
	if err := options.Transfer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transfer config: %w", err)
	}

	resolver := options.Resolver
	if resolver == nil && options.DownloadDir != "" {
		resolver = file.NewDirResolver(options.DownloadDir)
	}
	if resolver == nil && options.RequireDestination {
		return nil, ErrNoDestination
	}

	j := options.Journal
	if j == nil {
		j = journal.NewMemoryJournal(journal.DefaultCapacity)
	}

	s := session.New()
	e := &Engine{
		options:  options,
		session:  s,
		journal:  j,
		receiver: transfer.NewReceiver(s, resolver, options.Transfer),
		sender:   transfer.NewSender(s, options.Transfer),
	}
	observer := transfer.ObserverFunc(e.record)
	e.receiver.SetObserver(observer)
	e.sender.SetObserver(observer)

	logrus.WithFields(logrus.Fields{
		"function":     "New",
		"download_dir": options.DownloadDir,
		"chunk_size":   options.Transfer.ChunkSize,
	}).Debug("Engine created")

	return e, nil
}

// StartReceiver starts listening on port. It returns true if the receiver is
// now running, including when it already was, and false if the port could
// not be bound or the engine has been killed.
func (e *Engine) StartReceiver(port uint16) bool {
	if e.isKilled() {
		return false
	}
	return e.receiver.Start(port)
}

// StartSender starts sending filePath to ip:port in the background. It
// returns false if a send attempt is already in progress or the engine has
// been killed. Failures after launch are reported through logs and the
// journal.
func (e *Engine) StartSender(filePath, ip string, port uint16) bool {
	if e.isKilled() {
		return false
	}
	return e.sender.Start(filePath, ip, port)
}

// GetProgress returns the fraction of the current file transferred, in [0, 1].
func (e *Engine) GetProgress() float64 {
	return e.session.Progress()
}

// GetCurrentFileName returns the name of the file in flight, or "" when idle.
func (e *Engine) GetCurrentFileName() string {
	return e.session.FileName()
}

// GetCurrentFileSize returns the declared size of the file in flight.
func (e *Engine) GetCurrentFileSize() uint64 {
	return e.session.FileSize()
}

// Cancel asks the running receiver and sender to stop at their next
// checkpoint. A receiver or sender started afterwards is not affected, and
// starting one does not withdraw the request from the other.
func (e *Engine) Cancel() {
	logrus.WithFields(logrus.Fields{
		"function": "Engine.Cancel",
	}).Info("Cancellation requested")
	e.session.Cancel()
}

// Snapshot returns a consistent-enough copy of the session for reporting.
func (e *Engine) Snapshot() session.Snapshot {
	return e.session.Snapshot()
}

// ReceiverPort returns the port the receiver is bound to, or 0.
func (e *Engine) ReceiverPort() uint16 {
	return e.receiver.Port()
}

// ReceiverRunning reports whether the receiver accept loop is active.
func (e *Engine) ReceiverRunning() bool {
	return e.receiver.Running()
}

// SenderActive reports whether a send attempt is in progress.
func (e *Engine) SenderActive() bool {
	return e.sender.Active()
}

// SetPathResolver replaces the resolver for subsequent incoming transfers.
func (e *Engine) SetPathResolver(r file.PathResolver) {
	e.receiver.SetPathResolver(r)
}

// Transfers lists up to limit journal entries, newest first.
func (e *Engine) Transfers(ctx context.Context, limit int) ([]journal.Entry, error) {
	return e.journal.List(ctx, limit)
}

// Journal returns the journal the engine records into.
func (e *Engine) Journal() journal.Journal {
	return e.journal
}

// WaitSender blocks until the current send attempt, grace window included,
// has finished and returns its result. Its ID matches the journal entry,
// which may still be in flight when WaitSender returns.
func (e *Engine) WaitSender() transfer.Result {
	return e.sender.Wait()
}

// Kill stops the receiver, aborts any send attempt and waits for pending
// journal writes. The engine cannot be restarted.
func (e *Engine) Kill() {
	e.mu.Lock()
	if e.killed {
		e.mu.Unlock()
		return
	}
	e.killed = true
	e.mu.Unlock()

	e.receiver.Stop()
	e.sender.Close()
	e.records.Wait()

	logrus.WithFields(logrus.Fields{
		"function": "Engine.Kill",
	}).Info("Engine stopped")
}

func (e *Engine) isKilled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.killed
}

// record journals a finished attempt off the worker goroutine.
func (e *Engine) record(res transfer.Result) {
	e.records.Add(1)
	go func() {
		defer e.records.Done()

		entry := entryFromResult(res)
		if e.options.Checksums && res.Outcome == transfer.OutcomeCompleted && res.Path != "" {
			sum, err := journal.Checksum(res.Path)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Engine.record",
					"path":     res.Path,
					"error":    err.Error(),
				}).Warn("Failed to checksum transferred file")
			}
			entry.Checksum = sum
		}

		ctx, cancel := context.WithTimeout(context.Background(), DefaultJournalTimeout)
		defer cancel()
		if err := e.journal.Record(ctx, entry); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "Engine.record",
				"file_name": entry.FileName,
				"error":     err.Error(),
			}).Error("Failed to record transfer")
		}
	}()
}

func entryFromResult(res transfer.Result) journal.Entry {
	id := res.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	e := journal.Entry{
		ID:          id,
		Direction:   res.Direction.String(),
		FileName:    res.FileName,
		Path:        res.Path,
		Peer:        res.Peer,
		Size:        res.Size,
		Offset:      res.Offset,
		Transferred: res.Transferred,
		Status:      journal.Status(res.Outcome),
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	return e
}
