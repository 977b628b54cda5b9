package moog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// Raw converts the buffer into interleaved little-endian samples, either
// float32 or 16-bit signed PCM.
func (buffer AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	if pcm16 {
		int16data := make([][2]int16, len(buffer))
		for i, v := range buffer {
			int16data[i][0] = int16(clamp(int(v[0]*math.MaxInt16), math.MinInt16, math.MaxInt16))
			int16data[i][1] = int16(clamp(int(v[1]*math.MaxInt16), math.MinInt16, math.MaxInt16))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, buffer)
	}
	if err != nil {
		return nil, fmt.Errorf("could not binary write data to binary buffer: %v", err)
	}
	return buf.Bytes(), nil
}

// WriteWav writes the buffer as a 16-bit stereo .wav file.
func (buffer AudioBuffer) WriteWav(w io.WriteSeeker, sampleRate int) error {
	sink := NewWavSink(w, sampleRate)
	if err := sink.WriteAudio(buffer); err != nil {
		return err
	}
	return sink.Close()
}

// WavSink is an AudioSink streaming blocks into a 16-bit stereo .wav file.
// The header is finalized on Close.
type WavSink struct {
	enc *wav.Encoder
	buf *audio.Float32Buffer
}

func NewWavSink(w io.WriteSeeker, sampleRate int) *WavSink {
	return &WavSink{
		enc: wav.NewEncoder(w, sampleRate, 16, 2, 1),
		buf: &audio.Float32Buffer{
			Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 2},
			SourceBitDepth: 16,
		},
	}
}

func (s *WavSink) WriteAudio(buffer AudioBuffer) error {
	s.buf.Data = s.buf.Data[:0]
	for _, v := range buffer {
		s.buf.Data = append(s.buf.Data, clampf(v[0]), clampf(v[1]))
	}
	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("could not write wav data: %w", err)
	}
	return nil
}

func (s *WavSink) Close() error {
	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("could not finalize wav file: %w", err)
	}
	return nil
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampf(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
