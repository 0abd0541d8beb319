package capture

import (
	"encoding/binary"
	"math"
	"time"
)

// Float32ToPCM16 converts float32 samples in [-1, 1] to 16-bit little-endian PCM.
func Float32ToPCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*math.MaxInt16)))
	}
	return buf
}

// wavEncoder wraps mono 16-bit PCM in a RIFF/WAVE container.
type wavEncoder struct {
	sampleRate int
}

func (w wavEncoder) Encode(pcm []byte, _ time.Duration) []byte {
	const headerSize = 44
	out := make([]byte, headerSize+len(pcm))
	le := binary.LittleEndian

	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(36+len(pcm)))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	le.PutUint32(out[16:], 16)
	le.PutUint16(out[20:], 1) // PCM
	le.PutUint16(out[22:], 1) // mono
	le.PutUint32(out[24:], uint32(w.sampleRate))
	le.PutUint32(out[28:], uint32(w.sampleRate*2))
	le.PutUint16(out[32:], 2)
	le.PutUint16(out[34:], 16)
	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(len(pcm)))
	copy(out[headerSize:], pcm)
	return out
}
