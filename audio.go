package moog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type (
	// AudioBuffer is a buffer of stereo audio samples of variable length, each
	// sample represented by [2]float32. [0] is left channel, [1] is right
	AudioBuffer [][2]float32

	// AudioSink receives rendered blocks. Close flushes and releases whatever
	// the sink wraps.
	AudioSink interface {
		WriteAudio(buffer AudioBuffer) error
		Close() error
	}

	// AudioContext is a device that pulls audio from a callback until closed.
	AudioContext interface {
		Play(render func(buf AudioBuffer) error) CloserWaiter
		Close() error
	}

	// CloserWaiter is a handle to a running playback. Wait blocks until the
	// playback ends, either because Close was called or the render callback
	// returned an error.
	CloserWaiter interface {
		Close() error
		Wait() error
	}

	// Synth renders audio in fixed blocks and accepts events from any
	// goroutine. Events take effect at the next block boundary.
	Synth interface {
		Render(buffer AudioBuffer) error
		Send(event Event) bool
	}
)

// Fill fills the AudioBuffer with zeros.
func (b AudioBuffer) Fill() {
	for i := range b {
		b[i] = [2]float32{}
	}
}

// BlockPeriod returns the wall-clock duration of one block.
func (c Config) BlockPeriod() time.Duration {
	return time.Duration(c.BlockSize) * time.Second / time.Duration(c.SampleRate)
}

// Run renders blocks into the sink at the fixed tick period of the config
// until the context is cancelled or rendering fails. The sink is closed on
// return, so a file sink is finalized even when the loop is interrupted.
func Run(ctx context.Context, synth Synth, sink AudioSink, cfg Config) (err error) {
	if cfg.BlockSize <= 0 || cfg.SampleRate <= 0 {
		return errors.New("moog.Run: block size and sample rate must be positive")
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("moog.Run: closing sink: %w", cerr)
		}
	}()
	buffer := make(AudioBuffer, cfg.BlockSize)
	ticker := time.NewTicker(cfg.BlockPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := synth.Render(buffer); err != nil {
			return fmt.Errorf("moog.Run: render failed: %w", err)
		}
		if err := sink.WriteAudio(buffer); err != nil {
			return fmt.Errorf("moog.Run: writing to sink failed: %w", err)
		}
	}
}
