package oto_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/vsariola/moog"
	"github.com/vsariola/moog/oto"
)

func TestFloatBufferTo32BitLE(t *testing.T) {
	buffer := moog.AudioBuffer{{0.25, -0.5}, {3, -3}}
	data := oto.FloatBufferTo32BitLE(buffer, []byte{0xff})
	if len(data) != 17 {
		t.Fatalf("expected the prefix and 16 bytes, got %d bytes", len(data))
	}
	want := []float32{0.25, -0.5, 1, -1}
	for i, w := range want {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(data[1+4*i:])); got != w {
			t.Fatalf("sample %d: got %v, expected %v", i, got, w)
		}
	}
}
