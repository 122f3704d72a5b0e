package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FrameHeader is a decoded frame prefix.
type FrameHeader struct {
	Kind   FrameKind
	Length uint32
}

// End reports whether the header is the end-of-transfer marker.
func (h FrameHeader) End() bool {
	return h.Kind == FrameEnd
}

// WriteChunk sends one data frame: the header, then the whole payload.
func WriteChunk(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	var hdr [FrameHeaderSize]byte
	hdr[0] = byte(FrameData)
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// WriteEnd sends the end-of-transfer marker.
func WriteEnd(w io.Writer) error {
	if _, err := w.Write([]byte{byte(FrameEnd)}); err != nil {
		return fmt.Errorf("write end marker: %w", err)
	}
	return nil
}

// ReadFrameHeader reads the next frame prefix. Data frames must carry between
// one and maxChunk bytes; on violation the payload is left unread.
func ReadFrameHeader(r io.Reader, maxChunk uint32) (FrameHeader, error) {
	var kind [1]byte
	if _, err := io.ReadFull(r, kind[:]); err != nil {
		return FrameHeader{}, fmt.Errorf("read frame kind: %w", err)
	}

	switch FrameKind(kind[0]) {
	case FrameEnd:
		return FrameHeader{Kind: FrameEnd}, nil
	case FrameData:
	default:
		return FrameHeader{}, fmt.Errorf("%w: 0x%02x", ErrUnknownFrame, kind[0])
	}

	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return FrameHeader{}, fmt.Errorf("read frame length: %w", err)
	}
	n := binary.LittleEndian.Uint32(length[:])
	if n == 0 {
		return FrameHeader{}, ErrZeroLengthChunk
	}
	if n > maxChunk {
		return FrameHeader{}, fmt.Errorf("%w: length %d exceeds %d", ErrChunkTooLarge, n, maxChunk)
	}
	return FrameHeader{Kind: FrameData, Length: n}, nil
}

// ReadPayload reads exactly h.Length bytes into buf, which must be large
// enough, and returns the filled slice.
func ReadPayload(r io.Reader, h FrameHeader, buf []byte) ([]byte, error) {
	if uint32(len(buf)) < h.Length {
		return nil, fmt.Errorf("%w: buffer %d smaller than frame %d", ErrChunkTooLarge, len(buf), h.Length)
	}
	p := buf[:h.Length]
	if _, err := io.ReadFull(r, p); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return p, nil
}
