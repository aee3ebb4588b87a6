package messaging

import (
	"slices"

	"github.com/opd-ai/callwire/limits"
)

// ReplayWindow rejects duplicate and stale counters.
//
// It keeps up to limits.ReplayWindowSize recently accepted counters in
// ascending order. The low watermark follows each newly accepted counter, so
// moderately reordered arrivals are still accepted while anything 64 or more
// below the largest counter is rejected for good.
type ReplayWindow struct {
	counters []uint32
}

// NewReplayWindow returns an empty window.
func NewReplayWindow() *ReplayWindow {
	return &ReplayWindow{counters: make([]uint32, 0, limits.ReplayWindowSize)}
}

// Accept records counter and reports whether it was seen for the first time
// and is recent enough.
func (w *ReplayWindow) Accept(counter uint32) bool {
	pos, found := slices.BinarySearch(w.counters, counter)
	if found {
		return false
	}
	if uint64(counter)+limits.ReplayWindowSize <= uint64(w.Largest()) {
		return false
	}

	evict := 0
	for evict < len(w.counters) && uint64(w.counters[evict])+limits.ReplayWindowSize <= uint64(counter) {
		evict++
	}
	w.counters = slices.Insert(w.counters, pos, counter)
	w.counters = slices.Delete(w.counters, 0, evict)
	return true
}

// Largest returns the highest accepted counter, or 0 when empty.
func (w *ReplayWindow) Largest() uint32 {
	if len(w.counters) == 0 {
		return 0
	}
	return w.counters[len(w.counters)-1]
}

// Len returns the number of counters held.
func (w *ReplayWindow) Len() int {
	return len(w.counters)
}
