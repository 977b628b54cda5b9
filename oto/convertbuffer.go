package oto

import (
	"encoding/binary"
	"math"

	"github.com/vsariola/moog"
)

// FloatBufferTo32BitLE appends the buffer to dst as interleaved little-endian
// float32 samples, clipped to [-1, 1].
func FloatBufferTo32BitLE(buffer moog.AudioBuffer, dst []byte) []byte {
	for _, v := range buffer {
		for _, s := range v {
			if s < -1 {
				s = -1
			} else if s > 1 {
				s = 1
			}
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s))
		}
	}
	return dst
}
