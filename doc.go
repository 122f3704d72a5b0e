// Package swiftshare implements a point-to-point file transfer engine over
// TCP.
//
// An Engine either listens for one incoming file at a time or pushes a single
// file to a peer, resuming from whatever the receiver already holds. Its
// control surface is deliberately small and non-blocking so that it can sit
// behind a UI, an HTTP API or a foreign-language binding: every operation
// returns immediately, and progress is polled.
//
// # Getting Started
//
// Receive files into a directory:
//
//	opts := swiftshare.NewOptions()
//	opts.DownloadDir = "/home/user/Downloads/SwiftShare"
//
//	engine, err := swiftshare.New(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Kill()
//
//	if !engine.StartReceiver(8080) {
//	    log.Fatal("port 8080 unavailable")
//	}
//
// Send a file from another engine:
//
//	engine.StartSender("/data/report.pdf", "192.168.1.20", 8080)
//	for engine.GetProgress() < 1 {
//	    fmt.Printf("%s %.0f%%\n", engine.GetCurrentFileName(), engine.GetProgress()*100)
//	    time.Sleep(100 * time.Millisecond)
//	}
//
// # Sessions
//
// The receiver and sender of one engine share a single progress session, so
// an engine reports on whichever transfer it is running. Use two engines for
// simultaneous sending and receiving.
//
// After a transfer ends its final progress stays readable for a grace window
// (one second by default) before the session resets to zero.
//
// # Cancellation
//
// Cancel is cooperative. The worker notices it at its next checkpoint, which
// is at most one chunk or one accept poll away. Starting a receiver or sender
// clears the request.
//
// # Journal
//
// Each finished attempt is recorded in a journal.Journal, in memory by default
// or in redis when configured. Completed transfers carry a BLAKE2b-256
// checksum of the file.
package swiftshare
