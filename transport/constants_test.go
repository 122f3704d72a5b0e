package transport

// Test network configuration constants.
const (
	testLoopback = "127.0.0.1"
	testPort     = 33445
	testPeerPort = 33446
)
