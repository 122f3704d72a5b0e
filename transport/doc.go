// Package transport provides the TCP plumbing used by the transfer state
// machines: a listener whose accept can be polled, outbound dialing, and a
// connection wrapper that enforces per-operation I/O timeouts.
//
// # Listening
//
// Listener.AcceptTimeout waits at most the given duration for a connection,
// returning ErrAcceptTimeout when none arrived. A receiver loop alternates
// between accepting and checking its cancellation flag:
//
//	ln, err := transport.Listen(9000)
//	if err != nil {
//	    return err
//	}
//	for !cancelled() {
//	    conn, err := ln.AcceptTimeout(50 * time.Millisecond)
//	    if errors.Is(err, transport.ErrAcceptTimeout) {
//	        continue
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    serve(conn)
//	}
//
// # Connections
//
// Conn refreshes the read or write deadline before every call, so a peer
// that stops sending or reading for longer than the I/O timeout fails the
// blocked call instead of hanging the worker. Accepted and dialed sockets are
// tuned with large send/receive buffers and TCP_NODELAY.
//
// # Errors
//
// Network failures are returned as *NetError, which records the operation
// and address and unwraps to the underlying error.
package transport
