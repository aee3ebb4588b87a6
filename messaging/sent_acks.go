package messaging

import "slices"

// SentAcks remembers reliable counters already acknowledged to the peer so a
// resent message is not delivered twice while its ack is still repeated.
type SentAcks struct {
	counters []uint32
}

// Register records counter and reports whether it is new.
//
// A reliable message leading its packet resets the baseline: the peer always
// resends oldest-first, so nothing below it will be referenced again.
func (s *SentAcks) Register(counter uint32, firstInPacket bool) bool {
	pos, found := slices.BinarySearch(s.counters, counter)
	if firstInPacket {
		s.counters = slices.Delete(s.counters, 0, pos)
		if !found {
			s.counters = slices.Insert(s.counters, 0, counter)
		}
		return !found
	}
	if found {
		return false
	}
	s.counters = slices.Insert(s.counters, pos, counter)
	return true
}

// Len returns the number of remembered counters.
func (s *SentAcks) Len() int {
	return len(s.counters)
}

// Reset forgets all counters.
func (s *SentAcks) Reset() {
	s.counters = nil
}
