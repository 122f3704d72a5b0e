// Package session holds the progress state shared between a running transfer
// worker and the goroutines that poll it.
//
// Counters are individually atomic; readers may observe bytesTransferred and
// totalBytes from slightly different instants, which is acceptable for
// progress reporting. The file name and size pair is mutex guarded because it
// is read and written as a unit.
package session

import (
	"sync"
	"sync/atomic"
)

// Info is the name and declared size of the file currently in flight.
type Info struct {
	Name string
	Size uint64
}

// Snapshot is a point-in-time copy of the session for reporting.
type Snapshot struct {
	Progress         float64 `json:"progress"`
	BytesTransferred uint64  `json:"bytes_transferred"`
	TotalBytes       uint64  `json:"total_bytes"`
	FileName         string  `json:"file_name"`
	FileSize         uint64  `json:"file_size"`
	Cancelled        bool    `json:"cancelled"`
}

// Session is the mutable state of the transfer an engine is running.
// The zero value is ready to use.
type Session struct {
	bytesTransferred atomic.Uint64
	totalBytes       atomic.Uint64
	cancelled        atomic.Bool
	cancelGen        atomic.Uint64

	mu   sync.Mutex
	info Info
}

// New returns an idle session.
func New() *Session {
	return &Session{}
}

// Begin publishes a new transfer. offset is the number of bytes already
// present at the destination and becomes the initial transferred count.
func (s *Session) Begin(name string, size, offset uint64) {
	s.mu.Lock()
	s.info = Info{Name: name, Size: size}
	s.mu.Unlock()

	s.totalBytes.Store(size)
	s.bytesTransferred.Store(offset)
}

// Add records n more bytes transferred and returns the new total.
func (s *Session) Add(n uint64) uint64 {
	return s.bytesTransferred.Add(n)
}

// SetTransferred overwrites the transferred count.
func (s *Session) SetTransferred(n uint64) {
	s.bytesTransferred.Store(n)
}

// Reset clears counters and file info. The cancellation flag is left alone.
func (s *Session) Reset() {
	s.bytesTransferred.Store(0)
	s.totalBytes.Store(0)

	s.mu.Lock()
	s.info = Info{}
	s.mu.Unlock()
}

// BytesTransferred returns the current transferred count.
func (s *Session) BytesTransferred() uint64 {
	return s.bytesTransferred.Load()
}

// TotalBytes returns the declared size of the current transfer.
func (s *Session) TotalBytes() uint64 {
	return s.totalBytes.Load()
}

// Progress returns the completed fraction in [0, 1]. It returns 0 when no
// transfer is active.
func (s *Session) Progress() float64 {
	total := s.totalBytes.Load()
	if total == 0 {
		return 0
	}
	done := s.bytesTransferred.Load()
	if done >= total {
		return 1
	}
	return float64(done) / float64(total)
}

// Info returns the name and size pair under the lock.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// FileName returns the name of the file in flight, or "" when idle.
func (s *Session) FileName() string {
	return s.Info().Name
}

// FileSize returns the declared size of the file in flight, or 0 when idle.
func (s *Session) FileSize() uint64 {
	return s.Info().Size
}

// Cancel requests cooperative cancellation of whatever is running.
func (s *Session) Cancel() {
	s.cancelGen.Add(1)
	s.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested since the flag was
// last cleared.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// ClearCancel clears the cancellation flag. Tokens taken before the clear
// still observe the earlier request.
func (s *Session) ClearCancel() {
	s.cancelled.Store(false)
}

// CancelToken marks the start of an attempt. CancelledSince reports any
// Cancel issued after the token was taken, regardless of ClearCancel.
func (s *Session) CancelToken() uint64 {
	return s.cancelGen.Load()
}

// CancelledSince reports whether Cancel was called after token was taken.
func (s *Session) CancelledSince(token uint64) bool {
	return s.cancelGen.Load() != token
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	info := s.Info()
	return Snapshot{
		Progress:         s.Progress(),
		BytesTransferred: s.BytesTransferred(),
		TotalBytes:       s.TotalBytes(),
		FileName:         info.Name,
		FileSize:         info.Size,
		Cancelled:        s.Cancelled(),
	}
}
