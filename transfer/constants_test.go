package transfer

import "time"

const (
	testLoopback   = "127.0.0.1"
	testFileName   = "report.pdf"
	testChunkSize  = 256 * 1024
	testLargeSize  = 10 * 1024 * 1024
	testSmallChunk = 16
)

const (
	testGraceWindow = 100 * time.Millisecond
	testWaitTimeout = 5 * time.Second
	testPollEvery   = 5 * time.Millisecond
)
