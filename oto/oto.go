package oto

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/moog"
)

type (
	// OtoContext is the default audio device, opened for 32-bit float stereo.
	OtoContext struct {
		ctx       *oto.Context
		blockSize int
	}

	// OtoPlayer pulls blocks from a render callback whenever the device wants
	// more audio.
	OtoPlayer struct {
		player  *oto.Player
		render  func(moog.AudioBuffer) error
		buffer  moog.AudioBuffer
		bytes   []byte
		pending []byte
		done    chan struct{}
		once    sync.Once
		err     error
	}
)

var errEndOfBuffer = errors.New("end of buffer")

// NewContext opens the audio device. The device buffers a few blocks, so
// latency follows the block size.
func NewContext(sampleRate, blockSize int) (*OtoContext, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4 * time.Duration(blockSize) * time.Second / time.Duration(sampleRate),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{ctx: ctx, blockSize: blockSize}, nil
}

// Play starts pulling audio from render, one block per call, on the device
// goroutine. Playback stops when the handle is closed or render fails.
func (c *OtoContext) Play(render func(moog.AudioBuffer) error) moog.CloserWaiter {
	o := &OtoPlayer{
		render: render,
		buffer: make(moog.AudioBuffer, c.blockSize),
		bytes:  make([]byte, 0, c.blockSize*8),
		done:   make(chan struct{}),
	}
	o.player = c.ctx.NewPlayer(o)
	o.player.Play()
	return o
}

// PlayBuffer plays an already rendered buffer and returns once it has been
// heard to the end.
func (c *OtoContext) PlayBuffer(buffer moog.AudioBuffer) error {
	pos := 0
	h := c.Play(func(b moog.AudioBuffer) error {
		if pos >= len(buffer) {
			return errEndOfBuffer
		}
		n := copy(b, buffer[pos:])
		clear(b[n:])
		pos += n
		return nil
	})
	if err := h.Wait(); err != nil && !errors.Is(err, errEndOfBuffer) {
		return err
	}
	return nil
}

func (c *OtoContext) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Read implements io.Reader for the oto player.
func (o *OtoPlayer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(o.pending) == 0 {
			select {
			case <-o.done:
				return n, io.EOF
			default:
			}
			if err := o.render(o.buffer); err != nil {
				o.finish(err)
				return n, io.EOF
			}
			o.bytes = FloatBufferTo32BitLE(o.buffer, o.bytes[:0])
			o.pending = o.bytes
		}
		c := copy(p[n:], o.pending)
		o.pending = o.pending[c:]
		n += c
	}
	return n, nil
}

func (o *OtoPlayer) finish(err error) {
	o.once.Do(func() {
		o.err = err
		close(o.done)
	})
}

// Wait blocks until playback has ended and the device has drained.
func (o *OtoPlayer) Wait() error {
	<-o.done
	for o.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	if o.err != nil {
		return fmt.Errorf("oto playback stopped: %w", o.err)
	}
	return o.player.Err()
}

func (o *OtoPlayer) Close() error {
	o.finish(nil)
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
