package moog_test

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/wav"
	"github.com/vsariola/moog"
)

func TestRawExport(t *testing.T) {
	buffer := moog.AudioBuffer{{0.5, -0.5}, {2, -2}}
	data, err := buffer.Raw(true)
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	if len(data) != 8 {
		t.Fatalf("expected 8 bytes of 16-bit stereo, got %d", len(data))
	}
	want := []int16{16383, -16383, math.MaxInt16, math.MinInt16}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(data[2*i:])); got != w {
			t.Fatalf("sample %d: got %d, expected %d", i, got, w)
		}
	}
	data, err = buffer.Raw(false)
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	if len(data) != 16 || math.Float32frombits(binary.LittleEndian.Uint32(data[4:])) != -0.5 {
		t.Fatalf("unexpected float data %v", data)
	}
}

func TestWavExport(t *testing.T) {
	buffer := make(moog.AudioBuffer, 1000)
	for i := range buffer {
		v := float32(math.Sin(float64(i) / 10))
		buffer[i] = [2]float32{v, -v}
	}
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := buffer.WriteWav(f, 22050); err != nil {
		t.Fatalf("WriteWav failed: %v", err)
	}
	f.Close()
	f, err = os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatalf("written file is not a valid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decoding failed: %v", err)
	}
	if buf.Format.NumChannels != 2 || buf.Format.SampleRate != 22050 {
		t.Fatalf("unexpected format %+v", buf.Format)
	}
	if len(buf.Data) != 2*len(buffer) {
		t.Fatalf("decoded %d samples, expected %d", len(buf.Data), 2*len(buffer))
	}
}

type countingSink struct {
	blocks int
	closed bool
}

func (s *countingSink) WriteAudio(moog.AudioBuffer) error { s.blocks++; return nil }
func (s *countingSink) Close() error                      { s.closed = true; return nil }

type silentSynth struct{}

func (silentSynth) Render(b moog.AudioBuffer) error { b.Fill(); return nil }
func (silentSynth) Send(moog.Event) bool            { return true }

func TestRunClosesSink(t *testing.T) {
	cfg := moog.DefaultConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sink := &countingSink{}
	if err := moog.Run(ctx, silentSynth{}, sink, cfg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !sink.closed {
		t.Fatalf("sink was not closed")
	}
	if sink.blocks == 0 {
		t.Fatalf("no blocks were rendered")
	}
}
