// Package limits provides centralized size limits for the SWFT wire protocol.
// This ensures consistent validation across the codec and both state machines.
package limits

import (
	"errors"
	"fmt"
)

const (
	// DefaultChunkSize is the chunk size a sender declares unless configured otherwise (256 KiB)
	DefaultChunkSize = 256 * 1024

	// MaxChunkSize is the largest chunk size a receiver accepts in metadata (16 MiB)
	// A receiver allocates one buffer of the negotiated size, so this bounds its memory use
	MaxChunkSize = 16 * 1024 * 1024

	// MaxFileNameLength is the maximum file name length in bytes
	// The wire field is a u16, but names are kept to typical filesystem limits
	MaxFileNameLength = 255

	// SocketBufferSize is the send/receive buffer requested on every transfer socket (4 MiB)
	SocketBufferSize = 4 * 1024 * 1024
)

var (
	// ErrChunkSizeZero indicates a zero chunk size was declared
	ErrChunkSizeZero = errors.New("chunk size is zero")

	// ErrChunkSizeTooLarge indicates the declared chunk size exceeds MaxChunkSize
	ErrChunkSizeTooLarge = errors.New("chunk size too large")

	// ErrNameEmpty indicates an empty file name
	ErrNameEmpty = errors.New("empty file name")

	// ErrNameTooLong indicates a file name exceeds MaxFileNameLength
	ErrNameTooLong = errors.New("file name too long")
)

// ValidateChunkSize validates a declared chunk size against MaxChunkSize.
// Returns an error with context including the actual and maximum sizes.
func ValidateChunkSize(size uint32) error {
	if size == 0 {
		return ErrChunkSizeZero
	}
	if size > MaxChunkSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrChunkSizeTooLarge, size, MaxChunkSize)
	}
	return nil
}

// ValidateNameLength validates a file name length in bytes against MaxFileNameLength.
func ValidateNameLength(n int) error {
	if n == 0 {
		return ErrNameEmpty
	}
	if n > MaxFileNameLength {
		return fmt.Errorf("%w: length %d exceeds limit %d", ErrNameTooLong, n, MaxFileNameLength)
	}
	return nil
}
