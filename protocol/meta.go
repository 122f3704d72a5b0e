package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/opd-ai/swiftshare/limits"
)

// FileMeta describes the file a sender is about to stream.
type FileMeta struct {
	FileSize  uint64
	ChunkSize uint32
	Name      string
}

// Validate checks the name and chunk size against package limits.
func (m FileMeta) Validate() error {
	if err := limits.ValidateNameLength(len(m.Name)); err != nil {
		return err
	}
	if !utf8.ValidString(m.Name) {
		return ErrInvalidName
	}
	return limits.ValidateChunkSize(m.ChunkSize)
}

// MarshalBinary encodes the fixed metadata followed by the name bytes.
// Format: [fileSize u64][nameLen u16][chunkSize u32][name]
func (m FileMeta) MarshalBinary() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, MetaSize+len(m.Name))
	binary.LittleEndian.PutUint64(buf[0:8], m.FileSize)
	binary.LittleEndian.PutUint16(buf[8:10], uint16(len(m.Name)))
	binary.LittleEndian.PutUint32(buf[10:14], m.ChunkSize)
	copy(buf[MetaSize:], m.Name)
	return buf, nil
}

// UnmarshalBinary decodes metadata produced by MarshalBinary.
func (m *FileMeta) UnmarshalBinary(data []byte) error {
	if len(data) < MetaSize {
		return fmt.Errorf("%w: metadata needs %d bytes, got %d", ErrPacketTooShort, MetaSize, len(data))
	}
	nameLen := int(binary.LittleEndian.Uint16(data[8:10]))
	if len(data) < MetaSize+nameLen {
		return fmt.Errorf("%w: file name truncated", ErrPacketTooShort)
	}
	decoded := FileMeta{
		FileSize:  binary.LittleEndian.Uint64(data[0:8]),
		ChunkSize: binary.LittleEndian.Uint32(data[10:14]),
		Name:      string(data[MetaSize : MetaSize+nameLen]),
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// WriteMeta sends the metadata and the name in one write.
func WriteMeta(w io.Writer, m FileMeta) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ReadMeta reads the fixed metadata and then exactly nameLen name bytes.
// The name length and chunk size are checked before the name is read.
func ReadMeta(r io.Reader) (FileMeta, error) {
	var hdr [MetaSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return FileMeta{}, fmt.Errorf("read metadata: %w", err)
	}

	nameLen := int(binary.LittleEndian.Uint16(hdr[8:10]))
	if err := limits.ValidateNameLength(nameLen); err != nil {
		return FileMeta{}, err
	}
	chunkSize := binary.LittleEndian.Uint32(hdr[10:14])
	if err := limits.ValidateChunkSize(chunkSize); err != nil {
		return FileMeta{}, err
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return FileMeta{}, fmt.Errorf("read file name: %w", err)
	}
	if !utf8.Valid(name) {
		return FileMeta{}, ErrInvalidName
	}

	return FileMeta{
		FileSize:  binary.LittleEndian.Uint64(hdr[0:8]),
		ChunkSize: chunkSize,
		Name:      string(name),
	}, nil
}

// WriteOffset sends the receiver's resume offset.
func WriteOffset(w io.Writer, offset uint64) error {
	var buf [OffsetSize]byte
	binary.LittleEndian.PutUint64(buf[:], offset)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write resume offset: %w", err)
	}
	return nil
}

// ReadOffset reads the receiver's resume offset.
func ReadOffset(r io.Reader) (uint64, error) {
	var buf [OffsetSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read resume offset: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
