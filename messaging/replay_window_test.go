package messaging

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplayWindowPermutationAcceptedOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		w := NewReplayWindow()
		for _, i := range rng.Perm(64) {
			counter := uint32(i + 1)
			assert.True(t, w.Accept(counter), "first sight of %d", counter)
			assert.False(t, w.Accept(counter), "second sight of %d", counter)
		}
		assert.Equal(t, 64, w.Len())
		assert.Equal(t, uint32(64), w.Largest())
	}
}

func TestReplayWindowRejectsTooOld(t *testing.T) {
	w := NewReplayWindow()
	assert.True(t, w.Accept(100))

	assert.False(t, w.Accept(36), "36 + 64 <= 100")
	assert.True(t, w.Accept(37))
	assert.False(t, w.Accept(37))
}

func TestReplayWindowEvictsOldest(t *testing.T) {
	w := NewReplayWindow()
	for c := uint32(1); c <= 64; c++ {
		assert.True(t, w.Accept(c))
	}
	assert.True(t, w.Accept(65))
	assert.Equal(t, 64, w.Len())

	// 1 was evicted and is now too old.
	assert.False(t, w.Accept(1))
	assert.True(t, w.Accept(130))
	assert.Equal(t, 1, w.Len(), "a jump evicts everything below the new low watermark")
}

func TestReplayWindowRejectionIsPermanent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	w := NewReplayWindow()
	rejected := map[uint32]bool{}
	base := uint32(1)

	for i := 0; i < 5000; i++ {
		counter := base + uint32(rng.Intn(100))
		if rng.Intn(10) == 0 {
			base += uint32(rng.Intn(20))
		}

		ok := w.Accept(counter)
		if rejected[counter] {
			assert.False(t, ok, "counter %d accepted after rejection", counter)
		}
		if !ok {
			rejected[counter] = true
		}
		if ok {
			assert.False(t, w.Accept(counter))
			rejected[counter] = true
		}
		assert.LessOrEqual(t, w.Len(), 64)
	}
}

func TestSentAcksRegister(t *testing.T) {
	var s SentAcks

	assert.True(t, s.Register(5, false))
	assert.False(t, s.Register(5, false))
	assert.False(t, s.Register(5, true))

	assert.True(t, s.Register(2, false))
	assert.True(t, s.Register(9, false))
	assert.Equal(t, 3, s.Len())

	// Leading a packet drops everything below the new baseline.
	assert.True(t, s.Register(7, true))
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Register(2, false), "2 was forgotten")

	assert.False(t, s.Register(9, true))
	assert.Equal(t, 1, s.Len())

	s.Reset()
	assert.Equal(t, 0, s.Len())
}
