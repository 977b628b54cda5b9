package engine

import (
	"testing"
	"time"

	"github.com/vsariola/moog"
)

// steppingClock advances by step on every reading.
type steppingClock struct {
	t    time.Time
	step time.Duration
}

func (c *steppingClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func TestOverrunsCountSlowBlocks(t *testing.T) {
	s, err := NewSynth(moog.DefaultConfig())
	if err != nil {
		t.Fatalf("NewSynth failed: %v", err)
	}
	clock := &steppingClock{}
	s.now = clock.now
	buf := make(moog.AudioBuffer, 4*s.cfg.BlockSize)

	clock.step = s.budget / 2
	if err := s.Render(buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if st := s.Stats(); st.Overruns != 0 || st.Blocks != 4 {
		t.Fatalf("fast blocks: %d overruns of %d blocks, expected none of 4", st.Overruns, st.Blocks)
	}

	clock.step = s.budget + time.Millisecond
	if err := s.Render(buf[:2*s.cfg.BlockSize]); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if st := s.Stats(); st.Overruns != 2 || st.Blocks != 6 {
		t.Fatalf("slow blocks: %d overruns of %d blocks, expected 2 of 6", st.Overruns, st.Blocks)
	}
}
