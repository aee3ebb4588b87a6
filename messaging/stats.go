package messaging

// Stats counts traffic and drop reasons for one connection.
type Stats struct {
	PacketsSent     uint64
	PacketsReceived uint64

	MessagesSent      uint64
	MessagesDelivered uint64
	MessagesResent    uint64

	AcksSent     uint64
	AcksReceived uint64
	RepeatedAcks uint64
	// AcksSkipped counts queued acks left for a later packet for lack of space.
	AcksSkipped uint64

	// DuplicateMessages counts items suppressed as already seen.
	DuplicateMessages uint64

	DroppedBadSize  uint64
	DroppedBadTag   uint64
	DroppedBadFrame uint64
	DroppedReplayed uint64
	SendsRefused    uint64
	ServiceNoops    uint64
}

// Dropped returns the total number of incoming packets discarded.
func (s Stats) Dropped() uint64 {
	return s.DroppedBadSize + s.DroppedBadTag + s.DroppedBadFrame + s.DroppedReplayed
}
