// Package journal keeps a history of finished transfer attempts.
//
// Every receive or send attempt that got as far as knowing its file is
// recorded once, after it ends, as an Entry. Two stores are provided:
// MemoryJournal, a bounded in-process ring, and RedisJournal, a capped list
// shared between processes.
//
//	j := journal.NewMemoryJournal(100)
//	_ = j.Record(ctx, entry)
//	recent, _ := j.List(ctx, 10) // newest first
package journal

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// DefaultCapacity is the number of entries kept when no capacity is given.
const DefaultCapacity = 256

var (
	// ErrInvalidEntry is returned when an entry lacks an ID or file name.
	ErrInvalidEntry = errors.New("invalid journal entry")
	// ErrStore wraps failures of the backing store.
	ErrStore = errors.New("journal store failure")
)

// Status is how an attempt ended.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Entry describes one finished attempt.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	Direction   string    `json:"direction"`
	FileName    string    `json:"file_name"`
	Path        string    `json:"path"`
	Peer        string    `json:"peer"`
	Size        uint64    `json:"size"`
	Offset      uint64    `json:"offset"`
	Transferred uint64    `json:"transferred"`
	Checksum    string    `json:"checksum,omitempty"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Validate checks the fields every stored entry must carry.
func (e Entry) Validate() error {
	if e.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidEntry)
	}
	if e.FileName == "" {
		return fmt.Errorf("%w: missing file name", ErrInvalidEntry)
	}
	return nil
}

// Duration is the wall time the attempt took.
func (e Entry) Duration() time.Duration {
	if e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Journal stores entries and lists them newest first.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Checksum returns the hex BLAKE2b-256 digest of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
