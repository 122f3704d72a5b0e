package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Hello is the identity header sent by the connecting peer.
type Hello struct {
	Magic    [4]byte
	Version  uint8
	Mode     Mode
	Reserved uint16
}

// NewHello returns a v1 identity header for the given mode.
func NewHello(mode Mode) Hello {
	h := Hello{Version: Version, Mode: mode}
	copy(h.Magic[:], Magic)
	return h
}

// MarshalBinary encodes the header into HelloSize bytes.
func (h Hello) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HelloSize)
	copy(buf[0:4], h.Magic[:])
	buf[4] = h.Version
	buf[5] = byte(h.Mode)
	binary.LittleEndian.PutUint16(buf[6:8], h.Reserved)
	return buf, nil
}

// UnmarshalBinary decodes a header from data. It does not validate the fields.
func (h *Hello) UnmarshalBinary(data []byte) error {
	if len(data) < HelloSize {
		return fmt.Errorf("%w: hello needs %d bytes, got %d", ErrPacketTooShort, HelloSize, len(data))
	}
	copy(h.Magic[:], data[0:4])
	h.Version = data[4]
	h.Mode = Mode(data[5])
	h.Reserved = binary.LittleEndian.Uint16(data[6:8])
	return nil
}

// Validate checks magic and version, then that the peer announced want.
func (h Hello) Validate(want Mode) error {
	if string(h.Magic[:]) != Magic {
		return fmt.Errorf("%w: %q", ErrBadMagic, h.Magic[:])
	}
	if h.Version != Version {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, h.Version, Version)
	}
	if h.Mode != want {
		return fmt.Errorf("%w: got %s, want %s", ErrBadMode, h.Mode, want)
	}
	return nil
}

// WriteHello sends a v1 identity header announcing mode.
func WriteHello(w io.Writer, mode Mode) error {
	data, _ := NewHello(mode).MarshalBinary()
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}
	return nil
}

// ReadHello reads exactly HelloSize bytes and decodes them. Callers must
// Validate the result before trusting anything that follows.
func ReadHello(r io.Reader) (Hello, error) {
	var buf [HelloSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Hello{}, fmt.Errorf("read hello: %w", err)
	}
	var h Hello
	err := h.UnmarshalBinary(buf[:])
	return h, err
}
