// Package transfer implements the receiver and sender state machines that
// move one file at a time over the SWFT protocol.
//
// # Receiver
//
// A Receiver owns a listening socket and serves connections strictly one at
// a time:
//
//	idle -> listening -> handshake -> meta_read -> path_resolve ->
//	    resume_compute -> transferring -> drain -> listening ... -> stopped
//
// Failures before the resume offset is sent (bad handshake, short reads,
// resolver rejection, open failure) drop only that connection. Failures in
// the data phase end the transfer, keep the bytes already written, and go
// through the same grace window and reset as a successful transfer, so the
// next attempt resumes where this one stopped.
//
// # Sender
//
// A Sender performs one attempt per Start call:
//
//	idle -> connecting -> handshake -> meta_send -> await_resume_offset ->
//	    transferring -> complete | error -> idle
//
// Start refuses a second attempt while one is in flight, because both would
// share one session.
//
// # Cancellation
//
// Both machines poll the session's cancellation flag between I/O steps. A
// blocked read or write is not interrupted, so stopping can take up to one
// I/O timeout (Config.Conn.IOTimeout, 30 seconds by default).
//
// # Progress
//
//	s := session.New()
//	rx := transfer.NewReceiver(s, file.NewDirResolver(dir), transfer.DefaultConfig())
//	rx.Start(9000)
//	for {
//	    fmt.Printf("%s %.0f%%\n", s.FileName(), s.Progress()*100)
//	    time.Sleep(time.Second)
//	}
//
// After a transfer ends, its final progress stays visible for
// Config.GraceWindow before the session is reset.
package transfer
