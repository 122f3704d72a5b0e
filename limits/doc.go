// Package limits provides centralized size constants and validation functions
// for the SWFT transfer protocol.
//
// # Size Limits
//
//   - DefaultChunkSize (256 KiB): the chunk size declared by senders by default.
//
//   - MaxChunkSize (16 MiB): the largest chunk size a receiver will negotiate.
//     Receivers allocate a single payload buffer of the negotiated size.
//
//   - MaxFileNameLength (255 bytes): the largest file name accepted on the wire.
//
//   - SocketBufferSize (4 MiB): socket buffer size applied to transfer connections.
//
// # Validation Functions
//
//	if err := limits.ValidateChunkSize(meta.ChunkSize); err != nil {
//	    // ErrChunkSizeZero or ErrChunkSizeTooLarge
//	}
//
//	if err := limits.ValidateNameLength(len(name)); err != nil {
//	    // ErrNameEmpty or ErrNameTooLong
//	}
//
// Errors are wrapped with the offending value, so callers match them with errors.Is.
package limits
