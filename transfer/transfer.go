package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/swiftshare/limits"
	"github.com/opd-ai/swiftshare/transport"
)

var (
	// ErrCancelled indicates the transfer stopped because cancellation was requested.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrIncomplete indicates the sender ended the transfer before the declared size.
	ErrIncomplete = errors.New("transfer ended before declared size")

	// ErrOverrun indicates a chunk that would write past the declared size.
	ErrOverrun = errors.New("chunk exceeds declared file size")

	// ErrNoResolver indicates a receiver without a path resolver.
	ErrNoResolver = errors.New("no path resolver configured")

	// ErrRejected indicates the path resolver refused the file.
	ErrRejected = errors.New("transfer rejected by path resolver")
)

// DefaultGraceWindow is how long the terminal state stays visible before the
// session is reset.
const DefaultGraceWindow = time.Second

// DefaultDrainTimeout bounds the wait for the end marker after the last byte.
const DefaultDrainTimeout = 2 * time.Second

// Config holds the tunables shared by Receiver and Sender.
type Config struct {
	// ChunkSize is the maximum payload per frame a sender declares.
	ChunkSize uint32
	// GraceWindow holds the terminal progress before the session resets.
	GraceWindow time.Duration
	// AcceptWait is the length of one receiver accept poll.
	AcceptWait time.Duration
	// DrainTimeout bounds the receiver's wait for the end marker.
	DrainTimeout time.Duration
	// DialTimeout bounds the sender's connect.
	DialTimeout time.Duration
	// Conn tunes sockets and sets the per-operation I/O timeout.
	Conn transport.ConnOptions
}

// DefaultConfig returns the stock engine tuning.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    limits.DefaultChunkSize,
		GraceWindow:  DefaultGraceWindow,
		AcceptWait:   transport.DefaultAcceptWait,
		DrainTimeout: DefaultDrainTimeout,
		DialTimeout:  transport.DefaultDialTimeout,
		Conn:         transport.DefaultConnOptions(),
	}
}

// Validate checks the config for values the state machines cannot run with.
func (c Config) Validate() error {
	if err := limits.ValidateChunkSize(c.ChunkSize); err != nil {
		return err
	}
	if c.AcceptWait <= 0 {
		return fmt.Errorf("accept wait must be positive, got %s", c.AcceptWait)
	}
	if c.GraceWindow < 0 || c.DrainTimeout < 0 || c.DialTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// Direction indicates whether a transfer is incoming or outgoing.
type Direction uint8

const (
	// DirectionIncoming represents a file being received.
	DirectionIncoming Direction = iota
	// DirectionOutgoing represents a file being sent.
	DirectionOutgoing
)

func (d Direction) String() string {
	if d == DirectionIncoming {
		return "receive"
	}
	return "send"
}

// Outcome is how a transfer attempt ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Result describes one finished transfer attempt.
type Result struct {
	ID          uuid.UUID
	Direction   Direction
	FileName    string
	Path        string
	Peer        string
	Size        uint64
	Offset      uint64
	Transferred uint64
	Outcome     Outcome
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Observer is told about every attempt that got as far as agreeing on a
// file. It runs on the worker goroutine before the grace window starts.
type Observer interface {
	TransferFinished(Result)
}

// ObserverFunc is a function type that implements Observer.
type ObserverFunc func(Result)

// TransferFinished implements Observer for ObserverFunc.
func (f ObserverFunc) TransferFinished(r Result) {
	f(r)
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, ErrCancelled):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
