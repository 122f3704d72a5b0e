package transfer

import (
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/swiftshare/file"
	"github.com/opd-ai/swiftshare/protocol"
	"github.com/opd-ai/swiftshare/session"
	"github.com/opd-ai/swiftshare/transport"
)

// Sender streams one file per attempt to a receiver. Attempts are
// serialized: Start refuses a new attempt while one is still running,
// including its grace window.
type Sender struct {
	session *session.Session
	cfg     Config

	mu           sync.Mutex
	state        SenderState
	active       bool
	observer     Observer
	timeProvider file.TimeProvider
	conn         *transport.Conn
	last         Result
	cancelToken  atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSender creates a sender that reports progress into s.
func NewSender(s *session.Session, cfg Config) *Sender {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sender{
		session:      s,
		cfg:          cfg,
		timeProvider: file.DefaultTimeProvider{},
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SetObserver registers the observer told about finished attempts.
func (s *Sender) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (s *Sender) SetTimeProvider(tp file.TimeProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeProvider = tp
}

// State returns the current state.
func (s *Sender) State() SenderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether an attempt is in progress.
func (s *Sender) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Start launches an attempt to send path to ip:port on its own goroutine.
// It returns false if an attempt is already running or the sender is closed.
func (s *Sender) Start(path, ip string, port uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return false
	}
	if s.active {
		logrus.WithFields(logrus.Fields{
			"function": "Sender.Start",
			"path":     path,
		}).Warn("Sender busy, rejecting new attempt")
		return false
	}

	s.cancelToken.Store(s.session.CancelToken())
	s.session.ClearCancel()
	s.active = true
	s.wg.Add(1)
	go s.run(path, ip, port)
	return true
}

// Wait blocks until the current attempt, if any, has finished and returns
// the result of the most recent attempt. The zero Result means no attempt
// has run yet.
func (s *Sender) Wait() Result {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Close aborts a running attempt, waits for it, and refuses further attempts.
func (s *Sender) Close() {
	s.cancel()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	s.wg.Wait()
}

func (s *Sender) setState(st SenderState) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()

	if prev != st {
		logrus.WithFields(logrus.Fields{
			"function": "Sender.setState",
			"from":     prev.String(),
			"to":       st.String(),
		}).Debug("Sender state changed")
	}
}

func (s *Sender) run(path, ip string, port uint16) {
	var res Result
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.active = false
		s.last = res
		s.mu.Unlock()
		s.setState(SenderIdle)
	}()

	s.mu.Lock()
	tp, observer := s.timeProvider, s.observer
	s.mu.Unlock()

	peer := net.JoinHostPort(ip, strconv.Itoa(int(port)))
	res = Result{ID: uuid.New(), Direction: DirectionOutgoing, Peer: peer, StartedAt: tp.Now()}

	src, err := file.OpenSource(path)
	if err != nil {
		res.FileName, res.Path = filepath.Base(path), path
		res.Outcome, res.Err, res.FinishedAt = OutcomeFailed, err, tp.Now()
		s.setState(SenderError)
		logrus.WithFields(logrus.Fields{
			"function": "Sender.run",
			"path":     path,
			"error":    err.Error(),
		}).Error("Cannot open source file")
		return
	}
	defer src.Close()

	res.FileName, res.Path, res.Size = src.Name, src.Path, src.Size
	s.session.Begin(src.Name, src.Size, 0)

	res.Offset, err = s.send(src, ip, port)
	res.Transferred = s.session.BytesTransferred()
	res.Outcome = outcomeOf(err)
	res.Err = err
	res.FinishedAt = tp.Now()

	entry := logrus.WithFields(logrus.Fields{
		"function":    "Sender.run",
		"file_name":   res.FileName,
		"peer":        peer,
		"outcome":     string(res.Outcome),
		"transferred": res.Transferred,
		"size":        res.Size,
	})
	if err != nil {
		s.setState(SenderError)
		entry.WithField("error", err.Error()).Error("Send attempt ended")
	} else {
		s.setState(SenderComplete)
		entry.Info("Send completed")
	}

	if observer != nil {
		observer.TransferFinished(res)
	}

	holdGrace(s.cfg.GraceWindow, s.ctx.Done())
	s.session.Reset()
}

// send runs the protocol for one attempt and returns the resume offset the
// receiver asked for.
func (s *Sender) send(src *file.Source, ip string, port uint16) (uint64, error) {
	s.setState(SenderConnecting)
	conn, err := transport.Dial(s.ctx, ip, port, s.cfg.DialTimeout, s.cfg.Conn)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		conn.Close()
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	s.setState(SenderHandshake)
	if err := protocol.WriteHello(conn, protocol.ModeSend); err != nil {
		return 0, err
	}

	s.setState(SenderMetaSend)
	meta := protocol.FileMeta{FileSize: src.Size, ChunkSize: s.cfg.ChunkSize, Name: src.Name}
	if err := protocol.WriteMeta(conn, meta); err != nil {
		return 0, err
	}

	s.setState(SenderAwaitResumeOffset)
	offset, err := protocol.ReadOffset(conn)
	if err != nil {
		return 0, err
	}
	if err := src.Seek(offset); err != nil {
		return offset, err
	}
	s.session.SetTransferred(offset)

	logrus.WithFields(logrus.Fields{
		"function":   "Sender.send",
		"peer":       conn.RemoteAddr().String(),
		"file_name":  src.Name,
		"file_size":  src.Size,
		"chunk_size": s.cfg.ChunkSize,
		"offset":     offset,
	}).Info("Sending file")

	// Bytes appended to the source after it was opened are not announced,
	// so they are not sent either.
	s.setState(SenderTransferring)
	if err := s.sendChunks(conn, io.LimitReader(src, int64(src.Size-offset))); err != nil {
		return offset, err
	}
	return offset, protocol.WriteEnd(conn)
}

// sendChunks streams the rest of src as data frames until EOF.
func (s *Sender) sendChunks(conn io.Writer, src io.Reader) error {
	buf := make([]byte, s.cfg.ChunkSize)
	for {
		if s.session.CancelledSince(s.cancelToken.Load()) {
			return ErrCancelled
		}

		n, err := src.Read(buf)
		if n > 0 {
			if werr := protocol.WriteChunk(conn, buf[:n]); werr != nil {
				return werr
			}
			s.session.Add(uint64(n))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
