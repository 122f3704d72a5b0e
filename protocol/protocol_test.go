package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/swiftshare/limits"
)

func TestHelloWireLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHello(&buf, ModeSend))

	assert.Equal(t, []byte{'S', 'W', 'F', 'T', 0x01, 0x01, 0x00, 0x00}, buf.Bytes())

	h, err := ReadHello(&buf)
	require.NoError(t, err)
	assert.NoError(t, h.Validate(ModeSend))
}

func TestHelloValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Hello)
		wantErr error
	}{
		{"valid", func(*Hello) {}, nil},
		{"bad_magic", func(h *Hello) { copy(h.Magic[:], "XXXX") }, ErrBadMagic},
		{"future_version", func(h *Hello) { h.Version = 2 }, ErrVersionMismatch},
		{"receive_mode", func(h *Hello) { h.Mode = ModeReceive }, ErrBadMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHello(ModeSend)
			tt.mutate(&h)
			err := h.Validate(ModeSend)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadHelloShortRead(t *testing.T) {
	_, err := ReadHello(bytes.NewReader([]byte("SWF")))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadHello(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}

func TestMetaWireLayout(t *testing.T) {
	meta := FileMeta{FileSize: 0x0102030405060708, ChunkSize: 256 * 1024, Name: "report.pdf"}

	var buf bytes.Buffer
	require.NoError(t, WriteMeta(&buf, meta))

	raw := buf.Bytes()
	require.Len(t, raw, MetaSize+len("report.pdf"))
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, raw[0:8])
	assert.Equal(t, []byte{10, 0}, raw[8:10])
	assert.Equal(t, []byte{0x00, 0x00, 0x04, 0x00}, raw[10:14])
	assert.Equal(t, "report.pdf", string(raw[14:]))

	got, err := ReadMeta(&buf)
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestReadMetaTruncatedName(t *testing.T) {
	meta := FileMeta{FileSize: 10, ChunkSize: 1024, Name: "notes.txt"}
	raw, err := meta.MarshalBinary()
	require.NoError(t, err)

	_, err = ReadMeta(bytes.NewReader(raw[:len(raw)-3]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var decoded FileMeta
	assert.ErrorIs(t, decoded.UnmarshalBinary(raw[:len(raw)-3]), ErrPacketTooShort)
	assert.ErrorIs(t, decoded.UnmarshalBinary(raw[:5]), ErrPacketTooShort)
}

func TestReadMetaRejectsBeforeReadingName(t *testing.T) {
	tests := []struct {
		name      string
		nameLen   uint16
		chunkSize uint32
		wantErr   error
	}{
		{"empty_name", 0, 1024, limits.ErrNameEmpty},
		{"name_too_long", limits.MaxFileNameLength + 1, 1024, limits.ErrNameTooLong},
		{"zero_chunk", 4, 0, limits.ErrChunkSizeZero},
		{"huge_chunk", 4, limits.MaxChunkSize + 1, limits.ErrChunkSizeTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdr := make([]byte, MetaSize)
			hdr[8] = byte(tt.nameLen)
			hdr[9] = byte(tt.nameLen >> 8)
			hdr[10] = byte(tt.chunkSize)
			hdr[11] = byte(tt.chunkSize >> 8)
			hdr[12] = byte(tt.chunkSize >> 16)
			hdr[13] = byte(tt.chunkSize >> 24)

			r := bytes.NewReader(append(hdr, "name"...))
			_, err := ReadMeta(r)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadMetaInvalidUTF8(t *testing.T) {
	hdr := make([]byte, MetaSize)
	hdr[8] = 2
	hdr[10] = 1
	_, err := ReadMeta(bytes.NewReader(append(hdr, 0xff, 0xfe)))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestOffsetWireLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOffset(&buf, 4096))
	assert.Equal(t, []byte{0x00, 0x10, 0, 0, 0, 0, 0, 0}, buf.Bytes())

	off, err := ReadOffset(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), off)

	_, err = ReadOffset(bytes.NewReader([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestChunkFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, []byte("hello")))
	require.NoError(t, WriteChunk(&buf, []byte("world!")))
	require.NoError(t, WriteEnd(&buf))

	assert.Equal(t, []byte{0x00, 5, 0, 0, 0}, buf.Bytes()[:FrameHeaderSize])

	payload := make([]byte, 16)
	var got []string
	for {
		h, err := ReadFrameHeader(&buf, 16)
		require.NoError(t, err)
		if h.End() {
			break
		}
		p, err := ReadPayload(&buf, h, payload)
		require.NoError(t, err)
		got = append(got, string(p))
	}

	assert.Equal(t, []string{"hello", "world!"}, got)
	assert.Zero(t, buf.Len())
}

func TestWriteChunkRejectsEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteChunk(&buf, nil), ErrEmptyPayload)
	assert.Zero(t, buf.Len())
}

func TestReadFrameHeaderOversizeLeavesPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, bytes.Repeat([]byte{0xAB}, 32)))

	_, err := ReadFrameHeader(&buf, 16)
	assert.ErrorIs(t, err, ErrChunkTooLarge)
	assert.Equal(t, 32, buf.Len(), "payload must not be consumed")
}

func TestReadFrameHeaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"zero_length", []byte{0x00, 0, 0, 0, 0}, ErrZeroLengthChunk},
		{"unknown_kind", []byte{0x42}, ErrUnknownFrame},
		{"short_length", []byte{0x00, 1, 0}, io.ErrUnexpectedEOF},
		{"closed", nil, io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrameHeader(bytes.NewReader(tt.input), 1024)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestReadPayloadShort(t *testing.T) {
	h := FrameHeader{Kind: FrameData, Length: 10}
	_, err := ReadPayload(strings.NewReader("abc"), h, make([]byte, 10))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadPayload(strings.NewReader("abcdefghij"), h, make([]byte, 4))
	assert.ErrorIs(t, err, ErrChunkTooLarge)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "send", ModeSend.String())
	assert.Equal(t, "receive", ModeReceive.String())
	assert.Equal(t, "mode(9)", Mode(9).String())
}
