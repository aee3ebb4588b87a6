package messaging

import (
	"fmt"
	"slices"
	"time"

	"github.com/opd-ai/callwire/interfaces"
	"github.com/opd-ai/callwire/limits"
	"github.com/sirupsen/logrus"
)

// pendingMessage is a reliable message waiting for its ack. serialized
// starts with the big-endian seq followed by the item type byte.
type pendingMessage struct {
	serialized []byte
	lastSent   time.Time
	sends      int
}

func (p *pendingMessage) seq() Seq {
	return readSeq(p.serialized)
}

// reliabilityEngine owns sequencing, acknowledgement and resend state for
// one connection. It works on plaintext frames only.
type reliabilityEngine struct {
	limit     int
	timing    Timing
	clock     TimeProvider
	scheduler interfaces.IServiceScheduler
	log       *logrus.Entry
	stats     *Stats

	counter     uint32
	notYetAcked []*pendingMessage
	acksToSend  []Seq
	window      *ReplayWindow
	sentAcks    SentAcks

	ackTimerActive    bool
	resendTimerActive bool
}

func newReliabilityEngine(limit int, timing Timing, clock TimeProvider, scheduler interfaces.IServiceScheduler, log *logrus.Entry, stats *Stats) *reliabilityEngine {
	return &reliabilityEngine{
		limit:     limit,
		timing:    timing,
		clock:     clock,
		scheduler: scheduler,
		log:       log,
		stats:     stats,
		window:    NewReplayWindow(),
	}
}

func (e *reliabilityEngine) fits(bufferLen, extra int) bool {
	return limits.Fits(e.limit, bufferLen, extra)
}

func (e *reliabilityEngine) haveAdditionalItems() bool {
	return len(e.notYetAcked) > 0 || len(e.acksToSend) > 0
}

// allocateSeq hands out the next counter with the given flags.
func (e *reliabilityEngine) allocateSeq(requiresAck, single bool) (Seq, error) {
	if requiresAck && len(e.notYetAcked) >= limits.MaxNotAckedMessages {
		return 0, ErrTooManyNotAcked
	}
	if e.counter >= MaxCounter {
		return 0, ErrCounterExhausted
	}
	e.counter++
	return MakeSeq(e.counter, requiresAck, single), nil
}

// prepareForSending returns the plaintext frame carrying msg. When reliable
// messages are already waiting, msg joins the queue and the frame is a
// service packet resending the whole queue in order.
func (e *reliabilityEngine) prepareForSending(msg Message) ([]byte, error) {
	requiresAck := msg.RequiresAck()
	single := !e.haveAdditionalItems() && !requiresAck

	serialized, err := SerializeMessage(msg, MakeSeq(0, requiresAck, single), single)
	if err != nil {
		return nil, err
	}
	// Reliable messages may later be resent behind a service header.
	reserve := 0
	if requiresAck {
		reserve = limits.ItemHeaderSize
	}
	if !e.fits(reserve, len(serialized)) {
		return nil, fmt.Errorf("%w: %d byte item, limit %d", ErrPacketTooLarge, len(serialized), e.limit)
	}

	seq, err := e.allocateSeq(requiresAck, single)
	if err != nil {
		return nil, err
	}
	putSeq(serialized, seq)
	e.stats.MessagesSent++

	if !requiresAck {
		return e.packOutgoing(serialized), nil
	}

	if len(e.notYetAcked) > 0 {
		e.notYetAcked = append(e.notYetAcked, &pendingMessage{serialized: serialized})
		for _, p := range e.notYetAcked {
			p.lastSent = time.Time{}
		}
		e.log.WithFields(logrus.Fields{
			"seq":     seq.String(),
			"pending": len(e.notYetAcked),
		}).Debug("Queued reliable message behind unacked messages")
		return e.prepareService(interfaces.CauseImmediate)
	}

	e.notYetAcked = append(e.notYetAcked, &pendingMessage{
		serialized: slices.Clone(serialized),
		lastSent:   e.clock.Now(),
		sends:      1,
	})
	return e.packOutgoing(serialized), nil
}

// prepareService builds a packet of queued acks and due resends, or returns
// nil when there is nothing to put in it.
func (e *reliabilityEngine) prepareService(cause interfaces.ServiceCause) ([]byte, error) {
	switch cause {
	case interfaces.CauseAcks:
		e.ackTimerActive = false
	case interfaces.CauseResend:
		e.resendTimerActive = false
	}

	if !e.haveAdditionalItems() {
		return nil, nil
	}
	if e.counter >= MaxCounter {
		return nil, ErrCounterExhausted
	}

	buf := e.packOutgoing(SerializeEmpty(0))
	if len(buf) == limits.ItemHeaderSize {
		e.stats.ServiceNoops++
		e.log.WithField("cause", cause.String()).Debug("Service packet not sent, nothing due")
		return nil, nil
	}

	seq, err := e.allocateSeq(false, false)
	if err != nil {
		return nil, err
	}
	putSeq(buf, seq)
	return buf, nil
}

// packOutgoing appends queued acks, then due resends in queue order, to buf.
// Resending stops at the first message that is not due or does not fit.
func (e *reliabilityEngine) packOutgoing(buf []byte) []byte {
	acked := 0
	for acked < len(e.acksToSend) && e.fits(len(buf), limits.AckItemSize) {
		buf = appendAck(buf, e.acksToSend[acked])
		acked++
	}
	if skipped := len(e.acksToSend) - acked; skipped > 0 {
		e.stats.AcksSkipped += uint64(skipped)
		e.log.WithField("skipped", skipped).Debug("Acks postponed for lack of space")
	}
	e.stats.AcksSent += uint64(acked)
	e.acksToSend = slices.Delete(e.acksToSend, 0, acked)

	now := e.clock.Now()
	for _, p := range e.notYetAcked {
		if !p.lastSent.IsZero() && now.Before(p.lastSent.Add(e.timing.MinResendDelay)) {
			break
		}
		if !e.fits(len(buf), len(p.serialized)) {
			break
		}
		buf = append(buf, p.serialized...)
		if p.sends > 0 {
			e.stats.MessagesResent++
			e.log.WithField("seq", p.seq().String()).Debug("Resending message")
		}
		p.lastSent = now
		p.sends++
	}

	if len(e.notYetAcked) > 0 {
		e.runResendTimer()
	}
	if len(e.acksToSend) > 0 {
		e.runAckTimer()
	}
	return buf
}

func (e *reliabilityEngine) runResendTimer() {
	if e.resendTimerActive {
		return
	}
	e.resendTimerActive = true
	e.scheduler.RequestService(e.timing.MaxResendDelay, interfaces.CauseResend)
}

func (e *reliabilityEngine) runAckTimer() {
	if e.ackTimerActive {
		return
	}
	e.ackTimerActive = true
	e.scheduler.RequestService(e.timing.MaxAckDelay, interfaces.CauseAcks)
}

// onAckReceived drops the matching message from the resend queue.
func (e *reliabilityEngine) onAckReceived(seq Seq) {
	for i, p := range e.notYetAcked {
		if p.seq() == seq {
			e.notYetAcked = slices.Delete(e.notYetAcked, i, i+1)
			e.stats.AcksReceived++
			e.log.WithField("seq", seq.String()).Debug("Message acknowledged")
			return
		}
	}
	e.stats.RepeatedAcks++
	e.log.WithField("seq", seq.String()).Debug("Repeated ack")
}

// onMessageRequiringAckReceived reports whether counter is delivered for the first time.
func (e *reliabilityEngine) onMessageRequiringAckReceived(counter uint32, firstInPacket bool) bool {
	return e.sentAcks.Register(counter, firstInPacket)
}

// onMessageReceived applies the replay window to unreliable items. The first
// item was already checked as the packet counter.
func (e *reliabilityEngine) onMessageReceived(counter uint32, firstInPacket bool) bool {
	if firstInPacket {
		return true
	}
	return e.window.Accept(counter)
}

// scheduleAck queues seq for acknowledgement unless it is already queued.
func (e *reliabilityEngine) scheduleAck(seq Seq) {
	if slices.Contains(e.acksToSend, seq) {
		return
	}
	e.acksToSend = append(e.acksToSend, seq)
}

// handleFrame applies a parsed and authenticated frame and returns the
// messages to deliver in arrival order.
func (e *reliabilityEngine) handleFrame(frame *Frame) []DecryptedMessage {
	var delivered []DecryptedMessage
	newReliable := false

	for i, item := range frame.Items {
		first := i == 0
		switch item.Kind {
		case ItemEmpty:
			e.log.WithField("seq", item.Seq.String()).Debug("Service packet received")
		case ItemAck:
			e.onAckReceived(item.Seq)
		default:
			counter := item.Seq.Counter()
			if item.Seq.RequiresAck() {
				isNew := e.onMessageRequiringAckReceived(counter, first)
				e.scheduleAck(item.Seq)
				if !isNew {
					e.stats.DuplicateMessages++
					e.log.WithField("seq", item.Seq.String()).Debug("Repeated reliable message, ack only")
					continue
				}
				newReliable = true
			} else if !e.onMessageReceived(counter, first) {
				e.stats.DuplicateMessages++
				e.log.WithField("seq", item.Seq.String()).Debug("Dropping duplicate message")
				continue
			}
			delivered = append(delivered, DecryptedMessage{Message: item.Message, Counter: counter})
		}
	}

	if len(e.acksToSend) > 0 {
		if newReliable {
			e.scheduler.RequestService(0, interfaces.CauseImmediate)
		} else {
			e.runAckTimer()
		}
	}
	e.stats.MessagesDelivered += uint64(len(delivered))
	return delivered
}

func (e *reliabilityEngine) reset() {
	e.notYetAcked = nil
	e.acksToSend = nil
	e.sentAcks.Reset()
	e.window = NewReplayWindow()
}
