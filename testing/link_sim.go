package testing

import (
	"math/rand"
	"sync"

	"github.com/opd-ai/callwire/interfaces"
	"github.com/sirupsen/logrus"
)

// Side names one end of a SimulatedLink.
type Side int

const (
	SideA Side = iota
	SideB
)

// Peer returns the opposite side.
func (s Side) Peer() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// LinkConfig controls how a SimulatedLink mistreats packets. Rates are
// probabilities in [0, 1].
type LinkConfig struct {
	DropRate      float64
	DuplicateRate float64
	ReorderRate   float64
	Seed          int64
}

// Delivery is a packet arriving at To.
type Delivery struct {
	To     Side
	Packet []byte
}

// LinkStats counts what the link did to the traffic.
type LinkStats struct {
	Sent       int
	Dropped    int
	Duplicated int
	Reordered  int
	Delivered  int
}

// SimulatedLink is an in-memory unreliable datagram link between two sides.
// Packets are queued by Send and released by Deliver. Loss, duplication and
// reordering are driven by a seeded random source so runs are repeatable.
type SimulatedLink struct {
	mu       sync.Mutex
	config   LinkConfig
	rng      *rand.Rand
	inFlight []Delivery
	stats    LinkStats
}

// NewSimulatedLink creates a link with the given behaviour.
func NewSimulatedLink(config LinkConfig) *SimulatedLink {
	logrus.WithFields(logrus.Fields{
		"function":  "NewSimulatedLink",
		"drop":      config.DropRate,
		"duplicate": config.DuplicateRate,
		"reorder":   config.ReorderRate,
		"seed":      config.Seed,
	}).Debug("Creating simulated link")

	return &SimulatedLink{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Send queues packet from one side towards the other.
func (l *SimulatedLink) Send(from Side, packet []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stats.Sent++
	if l.rng.Float64() < l.config.DropRate {
		l.stats.Dropped++
		return
	}

	d := Delivery{To: from.Peer(), Packet: append([]byte(nil), packet...)}
	l.enqueue(d)
	if l.rng.Float64() < l.config.DuplicateRate {
		l.stats.Duplicated++
		l.enqueue(Delivery{To: d.To, Packet: append([]byte(nil), packet...)})
	}
}

func (l *SimulatedLink) enqueue(d Delivery) {
	if len(l.inFlight) > 0 && l.rng.Float64() < l.config.ReorderRate {
		l.stats.Reordered++
		pos := l.rng.Intn(len(l.inFlight))
		l.inFlight = append(l.inFlight, Delivery{})
		copy(l.inFlight[pos+1:], l.inFlight[pos:])
		l.inFlight[pos] = d
		return
	}
	l.inFlight = append(l.inFlight, d)
}

// Deliver releases every packet in flight, in arrival order.
func (l *SimulatedLink) Deliver() []Delivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.inFlight
	l.inFlight = nil
	l.stats.Delivered += len(out)
	return out
}

// InFlight returns the number of queued packets.
func (l *SimulatedLink) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inFlight)
}

// Stats returns a snapshot of the link counters.
func (l *SimulatedLink) Stats() LinkStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Sender returns an interfaces.IPacketSender that sends from side.
func (l *SimulatedLink) Sender(from Side) interfaces.IPacketSender {
	return interfaces.SenderFunc(func(packet []byte) error {
		l.Send(from, packet)
		return nil
	})
}
