package testing

import (
	"testing"
	"time"

	"github.com/opd-ai/callwire/interfaces"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestManualSchedulerAdvance(t *testing.T) {
	s := NewManualScheduler(epoch)

	s.RequestService(time.Second, interfaces.CauseResend)
	s.RequestService(0, interfaces.CauseImmediate)
	s.RequestService(500*time.Millisecond, interfaces.CauseAcks)
	assert.Equal(t, 3, s.Total())
	assert.Len(t, s.Pending(), 3)

	assert.Equal(t, []interfaces.ServiceCause{interfaces.CauseImmediate}, s.Advance(0))
	assert.Empty(t, s.Advance(100*time.Millisecond))
	assert.Equal(t, []interfaces.ServiceCause{interfaces.CauseAcks}, s.Advance(400*time.Millisecond))
	assert.Equal(t, []interfaces.ServiceCause{interfaces.CauseResend}, s.Advance(time.Hour))
	assert.Empty(t, s.Pending())

	assert.Equal(t, epoch.Add(time.Hour+500*time.Millisecond), s.Now())
	assert.Equal(t, time.Hour, s.Since(epoch.Add(500*time.Millisecond)))
}

func TestManualSchedulerDrain(t *testing.T) {
	s := NewManualScheduler(epoch)
	s.RequestService(time.Minute, interfaces.CauseResend)
	s.RequestService(time.Second, interfaces.CauseAcks)

	drained := s.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, epoch.Add(time.Minute), drained[0].Due)
	assert.Empty(t, s.Pending())
	assert.Empty(t, s.Advance(time.Hour))
}

func TestSimulatedLinkPerfect(t *testing.T) {
	link := NewSimulatedLink(LinkConfig{Seed: 1})

	link.Send(SideA, []byte("one"))
	link.Send(SideB, []byte("two"))
	assert.Equal(t, 2, link.InFlight())

	got := link.Deliver()
	assert.Equal(t, []Delivery{
		{To: SideB, Packet: []byte("one")},
		{To: SideA, Packet: []byte("two")},
	}, got)
	assert.Equal(t, 0, link.InFlight())
	assert.Equal(t, LinkStats{Sent: 2, Delivered: 2}, link.Stats())
}

func TestSimulatedLinkCopiesPackets(t *testing.T) {
	link := NewSimulatedLink(LinkConfig{})
	buf := []byte("abc")
	assert.NoError(t, link.Sender(SideA).SendPacket(buf))
	buf[0] = 'x'

	assert.Equal(t, []byte("abc"), link.Deliver()[0].Packet)
}

func TestSimulatedLinkLossy(t *testing.T) {
	config := LinkConfig{DropRate: 0.3, DuplicateRate: 0.2, ReorderRate: 0.3, Seed: 99}
	run := func() ([]Delivery, LinkStats) {
		link := NewSimulatedLink(config)
		for i := 0; i < 200; i++ {
			link.Send(SideA, []byte{byte(i)})
		}
		return link.Deliver(), link.Stats()
	}

	first, stats := run()
	second, _ := run()
	assert.Equal(t, first, second, "same seed, same behaviour")

	assert.Equal(t, 200, stats.Sent)
	assert.Greater(t, stats.Dropped, 20)
	assert.Greater(t, stats.Duplicated, 10)
	assert.Greater(t, stats.Reordered, 10)
	assert.Equal(t, 200-stats.Dropped+stats.Duplicated, len(first))
}

func TestSide(t *testing.T) {
	assert.Equal(t, SideB, SideA.Peer())
	assert.Equal(t, SideA, SideB.Peer())
	assert.Equal(t, "A", SideA.String())
}
