// Package protocol implements the SWFT v1 wire format used between a sender
// and a receiver.
//
// # Wire Format
//
// All integers are little-endian and every structure is serialized field by
// field, so no struct padding ever reaches the wire. A transfer is a strictly
// ordered exchange on a single TCP connection:
//
//	sender -> receiver   Hello          "SWFT" | version u8 | mode u8 | reserved u16
//	sender -> receiver   FileMeta       fileSize u64 | nameLen u16 | chunkSize u32 | name
//	receiver -> sender   resume offset  u64
//	sender -> receiver   data frame     0x00 | length u32 | payload   (repeated)
//	sender -> receiver   end marker     0xFF
//
// Every frame carries a one-byte kind prefix. A data frame must carry between
// one and chunkSize payload bytes; the end of a transfer is signalled only by
// the explicit end marker, never by a zero-length frame.
//
// # Reading
//
// The Read* functions use exact full reads: a peer that closes or stalls
// mid-structure produces an error wrapping io.ErrUnexpectedEOF (or io.EOF when
// nothing at all was read) instead of a partially filled value.
//
//	hello, err := protocol.ReadHello(conn)
//	if err != nil {
//	    return err
//	}
//	if err := hello.Validate(protocol.ModeSend); err != nil {
//	    return err // ErrBadMagic, ErrVersionMismatch or ErrBadMode
//	}
//	meta, err := protocol.ReadMeta(conn)
//
// # Errors
//
// Validation failures are reported with sentinel errors that callers match
// with errors.Is. ReadFrameHeader returns ErrChunkTooLarge before consuming
// any payload, so an oversize frame is never written anywhere.
package protocol
