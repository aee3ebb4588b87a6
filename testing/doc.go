// Package testing provides in-memory doubles for driving callwire
// connections deterministically.
//
// [ManualScheduler] is both the virtual clock and the service scheduler a
// messaging connection needs. [SimulatedLink] is a lossy datagram link with
// seeded drop, duplicate and reorder behaviour.
//
//	sched := testing.NewManualScheduler(start)
//	conn := messaging.NewEncryptedConnection(messaging.Transport, key, sched,
//		messaging.Options{TimeProvider: sched})
//
//	link := testing.NewSimulatedLink(testing.LinkConfig{DropRate: 0.2, Seed: 1})
//	link.Send(testing.SideA, pkt.Bytes)
//
//	for _, cause := range sched.Advance(100 * time.Millisecond) {
//		if pkt, _ := conn.PrepareForSendingService(cause); pkt != nil {
//			link.Send(testing.SideA, pkt.Bytes)
//		}
//	}
//	for _, d := range link.Deliver() {
//		// hand d.Packet to the connection on side d.To
//	}
//
// Both types are safe for concurrent use.
package testing
