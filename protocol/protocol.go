package protocol

import (
	"errors"
	"fmt"
)

// Magic is the literal that opens every SWFT connection.
const Magic = "SWFT"

// Version is the only protocol version spoken by this package.
const Version uint8 = 1

const (
	// HelloSize is the encoded size of the identity header.
	HelloSize = 8
	// MetaSize is the encoded size of the fixed part of FileMeta.
	MetaSize = 14
	// OffsetSize is the encoded size of the resume offset.
	OffsetSize = 8
	// FrameHeaderSize is the encoded size of a data frame header.
	FrameHeaderSize = 5
)

// Mode identifies the role announced by the connecting peer.
type Mode uint8

const (
	// ModeSend is announced by a peer that is about to stream a file.
	ModeSend Mode = 1
	// ModeReceive is reserved for a peer that wants to pull a file.
	ModeReceive Mode = 2
)

// String returns a human readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeSend:
		return "send"
	case ModeReceive:
		return "receive"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// FrameKind is the one-byte prefix of every frame after the resume offset.
type FrameKind uint8

const (
	// FrameData precedes a length field and a payload.
	FrameData FrameKind = 0x00
	// FrameEnd marks the end of a transfer and carries nothing else.
	FrameEnd FrameKind = 0xFF
)

// Status is a one-byte result code shared by the engine's outer surfaces.
type Status uint8

const (
	StatusOK    Status = 0
	StatusError Status = 1
)

var (
	// ErrBadMagic indicates the identity header did not start with Magic.
	ErrBadMagic = errors.New("bad protocol magic")

	// ErrVersionMismatch indicates the peer speaks a different protocol version.
	ErrVersionMismatch = errors.New("protocol version mismatch")

	// ErrBadMode indicates the peer announced an unexpected mode.
	ErrBadMode = errors.New("unexpected transfer mode")

	// ErrPacketTooShort indicates a buffer shorter than the structure it should hold.
	ErrPacketTooShort = errors.New("packet too short")

	// ErrInvalidName indicates a file name that is not valid UTF-8.
	ErrInvalidName = errors.New("file name is not valid UTF-8")

	// ErrZeroLengthChunk indicates a data frame without payload.
	ErrZeroLengthChunk = errors.New("zero-length chunk")

	// ErrChunkTooLarge indicates a data frame longer than the negotiated chunk size.
	ErrChunkTooLarge = errors.New("chunk exceeds negotiated size")

	// ErrUnknownFrame indicates a frame kind other than FrameData or FrameEnd.
	ErrUnknownFrame = errors.New("unknown frame kind")

	// ErrEmptyPayload indicates an attempt to send a data frame without payload.
	ErrEmptyPayload = errors.New("empty chunk payload")
)
