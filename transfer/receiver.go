package transfer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/swiftshare/file"
	"github.com/opd-ai/swiftshare/protocol"
	"github.com/opd-ai/swiftshare/session"
	"github.com/opd-ai/swiftshare/transport"
)

// Receiver listens on a TCP port and stores incoming files, one connection
// at a time, until cancelled or stopped.
type Receiver struct {
	session *session.Session
	cfg     Config

	mu           sync.Mutex
	state        ReceiverState
	running      bool
	resolver     file.PathResolver
	observer     Observer
	timeProvider file.TimeProvider
	ln           *transport.Listener
	conn         *transport.Conn
	stopOnce     func()
	done         chan struct{}
	cancelToken  atomic.Uint64
}

// NewReceiver creates a receiver that reports progress into s.
func NewReceiver(s *session.Session, resolver file.PathResolver, cfg Config) *Receiver {
	return &Receiver{
		session:      s,
		cfg:          cfg,
		resolver:     resolver,
		timeProvider: file.DefaultTimeProvider{},
	}
}

// SetPathResolver replaces the resolver used for subsequent connections.
func (r *Receiver) SetPathResolver(resolver file.PathResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolver = resolver
}

// SetObserver registers the observer told about finished transfers.
func (r *Receiver) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (r *Receiver) SetTimeProvider(tp file.TimeProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeProvider = tp
}

// State returns the current state.
func (r *Receiver) State() ReceiverState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Running reports whether the accept loop is active.
func (r *Receiver) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Port returns the bound port, or 0 when not listening.
func (r *Receiver) Port() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ln == nil {
		return 0
	}
	return r.ln.Port()
}

// Start binds port and runs the accept loop on its own goroutine. It is
// idempotent: while the loop runs, further calls return true and do nothing.
// It returns false only when the port cannot be bound.
func (r *Receiver) Start(port uint16) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		logrus.WithFields(logrus.Fields{
			"function": "Receiver.Start",
			"port":     port,
		}).Info("Receiver already listening")
		return true
	}

	ln, err := transport.Listen(port, r.cfg.Conn)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Receiver.Start",
			"port":     port,
			"error":    err.Error(),
		}).Error("Receiver failed to start")
		r.state = ReceiverStopped
		return false
	}

	r.cancelToken.Store(r.session.CancelToken())
	r.session.ClearCancel()
	quit := make(chan struct{})
	r.running = true
	r.ln = ln
	r.stopOnce = sync.OnceFunc(func() { close(quit) })
	r.done = make(chan struct{})

	go r.acceptLoop(ln, quit, r.done)
	return true
}

// Stop closes the listener and any connection in flight, and waits for the
// accept loop to exit. It is a no-op when the receiver is not running.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	ln, conn, stop, done := r.ln, r.conn, r.stopOnce, r.done
	r.mu.Unlock()

	stop()
	ln.Close()
	if conn != nil {
		conn.Close()
	}
	<-done
}

// cancelled reports a Cancel issued since this receiver was started.
func (r *Receiver) cancelled() bool {
	return r.session.CancelledSince(r.cancelToken.Load())
}

func (r *Receiver) setState(st ReceiverState) {
	r.mu.Lock()
	prev := r.state
	r.state = st
	r.mu.Unlock()

	if prev != st {
		logrus.WithFields(logrus.Fields{
			"function": "Receiver.setState",
			"from":     prev.String(),
			"to":       st.String(),
		}).Debug("Receiver state changed")
	}
}

func (r *Receiver) acceptLoop(ln *transport.Listener, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		ln.Close()
		r.setState(ReceiverStopped)
		r.mu.Lock()
		r.running = false
		r.ln = nil
		r.mu.Unlock()
	}()

	r.setState(ReceiverListening)
	for {
		if r.cancelled() {
			logrus.WithFields(logrus.Fields{
				"function": "Receiver.acceptLoop",
			}).Info("Receiver cancelled, leaving accept loop")
			return
		}

		conn, err := ln.AcceptTimeout(r.cfg.AcceptWait)
		if errors.Is(err, transport.ErrAcceptTimeout) {
			continue
		}
		if errors.Is(err, transport.ErrListenerClosed) {
			logrus.WithFields(logrus.Fields{
				"function": "Receiver.acceptLoop",
			}).Info("Listener closed, leaving accept loop")
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Receiver.acceptLoop",
				"error":    err.Error(),
			}).Error("Accept failed, stopping receiver")
			return
		}

		r.serve(conn, quit)
		r.setState(ReceiverListening)
	}
}

// reject logs a connection-scoped failure; the caller closes the connection.
func (r *Receiver) reject(peer, step string, err error) {
	logrus.WithFields(logrus.Fields{
		"function": "Receiver.serve",
		"peer":     peer,
		"step":     step,
		"error":    err.Error(),
	}).Warn("Dropping connection")
}

func (r *Receiver) serve(conn *transport.Conn, quit <-chan struct{}) {
	r.mu.Lock()
	r.conn = conn
	resolver, tp := r.resolver, r.timeProvider
	r.mu.Unlock()

	defer func() {
		conn.Close()
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
	}()

	peer := conn.RemoteAddr().String()
	startedAt := tp.Now()

	r.setState(ReceiverHandshake)
	hello, err := protocol.ReadHello(conn)
	if err == nil {
		err = hello.Validate(protocol.ModeSend)
	}
	if err != nil {
		r.reject(peer, "handshake", err)
		return
	}

	r.setState(ReceiverMetaRead)
	meta, err := protocol.ReadMeta(conn)
	if err != nil {
		r.reject(peer, "metadata", err)
		return
	}

	r.setState(ReceiverPathResolve)
	if resolver == nil {
		r.reject(peer, "resolve", ErrNoResolver)
		return
	}
	path := resolver.Resolve(meta.Name)
	if path == "" {
		r.reject(peer, "resolve", fmt.Errorf("%w: %q", ErrRejected, meta.Name))
		return
	}

	r.setState(ReceiverResumeCompute)
	dst, err := file.OpenDestination(path, meta.FileSize)
	if err != nil {
		r.reject(peer, "open", err)
		return
	}

	r.session.Begin(meta.Name, meta.FileSize, dst.Offset)
	if err := protocol.WriteOffset(conn, dst.Offset); err != nil {
		dst.Close()
		r.session.Reset()
		r.reject(peer, "resume offset", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Receiver.serve",
		"peer":       peer,
		"file_name":  meta.Name,
		"file_size":  meta.FileSize,
		"chunk_size": meta.ChunkSize,
		"offset":     dst.Offset,
		"path":       dst.Path,
	}).Info("Receiving file")

	r.setState(ReceiverTransferring)
	endSeen, err := r.receiveChunks(conn, dst, meta)
	if err == nil && !endSeen {
		r.setState(ReceiverDrain)
		r.drain(conn, meta.ChunkSize)
	}

	if closeErr := dst.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	conn.Close()

	r.finish(Result{
		ID:          uuid.New(),
		Direction:   DirectionIncoming,
		FileName:    meta.Name,
		Path:        dst.Path,
		Peer:        peer,
		Size:        meta.FileSize,
		Offset:      dst.Offset,
		Transferred: r.session.BytesTransferred(),
		Outcome:     outcomeOf(err),
		Err:         err,
		StartedAt:   startedAt,
		FinishedAt:  tp.Now(),
	}, quit)
}

// receiveChunks copies frames into dst until the declared size is reached,
// the end marker arrives, or an error occurs. endSeen reports the marker.
func (r *Receiver) receiveChunks(conn *transport.Conn, dst *file.Destination, meta protocol.FileMeta) (endSeen bool, err error) {
	buf := make([]byte, meta.ChunkSize)

	for r.session.BytesTransferred() < meta.FileSize {
		if r.cancelled() {
			return false, ErrCancelled
		}

		h, err := protocol.ReadFrameHeader(conn, meta.ChunkSize)
		if err != nil {
			return false, err
		}
		if h.End() {
			return true, fmt.Errorf("%w: %d of %d bytes", ErrIncomplete, r.session.BytesTransferred(), meta.FileSize)
		}
		if remaining := meta.FileSize - r.session.BytesTransferred(); uint64(h.Length) > remaining {
			return false, fmt.Errorf("%w: frame %d, remaining %d", ErrOverrun, h.Length, remaining)
		}

		payload, err := protocol.ReadPayload(conn, h, buf)
		if err != nil {
			return false, err
		}
		if _, err := dst.Write(payload); err != nil {
			return false, err
		}
		r.session.Add(uint64(len(payload)))
	}
	return false, nil
}

// drain consumes the end marker that follows the last data frame. A missing
// marker does not fail a transfer whose bytes all arrived.
func (r *Receiver) drain(conn *transport.Conn, chunkSize uint32) {
	timeout := conn.IOTimeout()
	conn.SetIOTimeout(r.cfg.DrainTimeout)
	defer conn.SetIOTimeout(timeout)

	h, err := protocol.ReadFrameHeader(conn, chunkSize)
	if err != nil || !h.End() {
		fields := logrus.Fields{"function": "Receiver.drain"}
		if err != nil {
			fields["error"] = err.Error()
		}
		logrus.WithFields(fields).Debug("No end marker after final chunk")
	}
}

// finish reports the result, holds the terminal state for the grace window
// and resets the session.
func (r *Receiver) finish(res Result, quit <-chan struct{}) {
	entry := logrus.WithFields(logrus.Fields{
		"function":    "Receiver.finish",
		"file_name":   res.FileName,
		"outcome":     string(res.Outcome),
		"transferred": res.Transferred,
		"size":        res.Size,
	})
	if res.Err != nil {
		entry.WithField("error", res.Err.Error()).Error("Transfer ended")
	} else {
		entry.Info("Transfer completed")
	}

	r.mu.Lock()
	observer := r.observer
	r.mu.Unlock()
	if observer != nil {
		observer.TransferFinished(res)
	}

	holdGrace(r.cfg.GraceWindow, quit)
	r.session.Reset()
}

// holdGrace waits for the grace window or until quit is closed.
func holdGrace(d time.Duration, quit <-chan struct{}) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-quit:
	}
}
