package testing

import (
	"sort"
	"sync"
	"time"

	"github.com/opd-ai/callwire/interfaces"
)

// ServiceRequest is one recorded RequestService call.
type ServiceRequest struct {
	Cause interfaces.ServiceCause
	Delay time.Duration
	Due   time.Time
}

// ManualScheduler is a virtual clock and service scheduler in one. It
// records RequestService calls and releases them as Advance moves time.
//
// It satisfies interfaces.IServiceScheduler and, through Now and Since,
// the time provider used by messaging connections.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	pending []ServiceRequest
	total   int
}

// NewManualScheduler returns a scheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// RequestService implements interfaces.IServiceScheduler.
func (s *ManualScheduler) RequestService(delay time.Duration, cause interfaces.ServiceCause) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, ServiceRequest{Cause: cause, Delay: delay, Due: s.now.Add(delay)})
	s.total++
}

// Now returns the virtual time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Since returns the virtual time elapsed since t.
func (s *ManualScheduler) Since(t time.Time) time.Duration {
	return s.Now().Sub(t)
}

// Advance moves the clock forward by d and returns the causes that became
// due, earliest first. Returned requests are removed.
func (s *ManualScheduler) Advance(d time.Duration) []interfaces.ServiceCause {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.now = s.now.Add(d)
	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].Due.Before(s.pending[j].Due)
	})

	var due []interfaces.ServiceCause
	n := 0
	for n < len(s.pending) && !s.pending[n].Due.After(s.now) {
		due = append(due, s.pending[n].Cause)
		n++
	}
	s.pending = append(s.pending[:0], s.pending[n:]...)
	return due
}

// Pending returns a copy of the requests not yet released.
func (s *ManualScheduler) Pending() []ServiceRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ServiceRequest(nil), s.pending...)
}

// Drain returns every pending request regardless of due time and forgets them.
func (s *ManualScheduler) Drain() []ServiceRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// Total returns how many requests were ever made.
func (s *ManualScheduler) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
