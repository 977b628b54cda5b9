package moog

import (
	"fmt"
	"math"
)

// Play renders the score offline. Events are sent to the synth at block
// boundaries, so their timing is quantized to the block size of the config.
func Play(synth Synth, score Score, cfg Config) (AudioBuffer, error) {
	if err := score.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	events := score.Sorted()
	length := int(math.Ceil(score.Length * float64(cfg.SampleRate)))
	blocks := (length + cfg.BlockSize - 1) / cfg.BlockSize
	buffer := make(AudioBuffer, blocks*cfg.BlockSize)
	next := 0
	for b := 0; b < blocks; b++ {
		start := float64(b*cfg.BlockSize) / float64(cfg.SampleRate)
		for next < len(events) && events[next].Time <= start {
			ev, _ := events[next].Event() // validated above
			if !synth.Send(ev) {
				return nil, fmt.Errorf("event queue overflow at %.3f s", start)
			}
			next++
		}
		block := buffer[b*cfg.BlockSize : (b+1)*cfg.BlockSize]
		if err := synth.Render(block); err != nil {
			return nil, fmt.Errorf("moog.Play failed at %.3f s: %v", start, err)
		}
	}
	return buffer[:length], nil
}
