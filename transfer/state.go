package transfer

// ReceiverState is a step of the receiver state machine.
type ReceiverState uint8

const (
	ReceiverIdle ReceiverState = iota
	ReceiverListening
	ReceiverHandshake
	ReceiverMetaRead
	ReceiverPathResolve
	ReceiverResumeCompute
	ReceiverTransferring
	// ReceiverDrain waits for the end marker after the declared size arrived.
	ReceiverDrain
	ReceiverStopped
)

var receiverStateNames = [...]string{
	ReceiverIdle:          "idle",
	ReceiverListening:     "listening",
	ReceiverHandshake:     "handshake",
	ReceiverMetaRead:      "meta_read",
	ReceiverPathResolve:   "path_resolve",
	ReceiverResumeCompute: "resume_compute",
	ReceiverTransferring:  "transferring",
	ReceiverDrain:         "drain",
	ReceiverStopped:       "stopped",
}

func (s ReceiverState) String() string {
	if int(s) < len(receiverStateNames) {
		return receiverStateNames[s]
	}
	return "unknown"
}

// SenderState is a step of the sender state machine.
type SenderState uint8

const (
	SenderIdle SenderState = iota
	SenderConnecting
	SenderHandshake
	SenderMetaSend
	SenderAwaitResumeOffset
	SenderTransferring
	SenderComplete
	SenderError
)

var senderStateNames = [...]string{
	SenderIdle:              "idle",
	SenderConnecting:        "connecting",
	SenderHandshake:         "handshake",
	SenderMetaSend:          "meta_send",
	SenderAwaitResumeOffset: "await_resume_offset",
	SenderTransferring:      "transferring",
	SenderComplete:          "complete",
	SenderError:             "error",
}

func (s SenderState) String() string {
	if int(s) < len(senderStateNames) {
		return senderStateNames[s]
	}
	return "unknown"
}
