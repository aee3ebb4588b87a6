// Package interfaces defines the collaborator contracts of an encrypted
// connection: the service scheduler that drives resend and ack timers, and
// the packet sender that puts encrypted bytes on the network.
//
// # Core Interfaces
//
// [IServiceScheduler] receives "call me back after delay for cause" requests.
// Production code backs it with timers that post into the connection's owning
// goroutine (see the transport package); tests use a manual scheduler with a
// fake clock (see the testing package).
//
// [IPacketSender] accepts finished packets. The connection never inspects the
// send result; loss is handled by the resend protocol.
//
// Plain functions can be adapted with [SchedulerFunc] and [SenderFunc].
package interfaces
