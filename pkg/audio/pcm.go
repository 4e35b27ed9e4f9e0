// Package audio provides the PCM utilities shared by the assessment pipeline:
// WAV encoding/decoding, RMS level measurement, time-window slicing, channel
// downmix, and linear resampling. All functions operate on 16-bit signed
// little-endian PCM, the common format of the STT and TTS providers.
package audio

import (
	"encoding/binary"
	"math"
)

// Signal is a decoded mono PCM clip. It is the unit of audio the scoring
// pipeline works with: the full utterance for volume analysis, or a sliced
// word window for per-word pronunciation scoring.
type Signal struct {
	// Data is 16-bit signed little-endian PCM, mono.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for STT input).
	SampleRate int
}

// Duration returns the clip length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Data)/2) / float64(s.SampleRate)
}

// Empty reports whether the clip contains no complete sample.
func (s Signal) Empty() bool {
	return len(s.Data) < 2
}

// Slice returns the sub-clip covering [start, end] seconds. Both bounds are
// clamped to the valid sample range, so a window that reaches past the end of
// the clip yields the remaining tail rather than an error. The returned
// Signal shares the underlying array with s.
func (s Signal) Slice(start, end float64) Signal {
	if s.SampleRate <= 0 || len(s.Data) < 2 {
		return Signal{SampleRate: s.SampleRate}
	}
	total := len(s.Data) / 2

	lo := int(start * float64(s.SampleRate))
	hi := int(end * float64(s.SampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > total {
		hi = total
	}
	if hi <= lo {
		return Signal{SampleRate: s.SampleRate}
	}
	return Signal{Data: s.Data[lo*2 : hi*2], SampleRate: s.SampleRate}
}

// RMS computes the root-mean-square level of the clip, normalised to
// [0, 1] where 1.0 corresponds to full-scale int16. Returns 0 for an
// empty clip.
func (s Signal) RMS() float64 {
	n := len(s.Data) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(s.Data[i*2 : i*2+2]))
		f := float64(sample) / 32768.0
		sum += f * f
	}
	mean := sum / float64(n)
	return math.Sqrt(mean)
}

// Float32 converts the clip to float32 samples normalised to [-1, 1], the
// input format of whisper.cpp and the embedding providers.
func (s Signal) Float32() []float32 {
	n := len(s.Data) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(s.Data[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// StereoToMono averages L+R per stereo frame (4 bytes) to produce mono
// output. Uses int32 arithmetic to prevent overflow and clamps to int16
// range.
func StereoToMono(pcm []byte) []byte {
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		l := int32(int16(binary.LittleEndian.Uint16(pcm[i*4 : i*4+2])))
		r := int32(int16(binary.LittleEndian.Uint16(pcm[i*4+2 : i*4+4])))
		avg := (l + r) / 2
		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(int16(avg)))
	}
	return out
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation. If srcRate == dstRate the input is returned
// unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	if srcSamples == 0 {
		return nil
	}
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}
	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstSamples {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		s0 := int16(binary.LittleEndian.Uint16(pcm[idx*2 : idx*2+2]))
		s1 := s0
		if idx+1 < srcSamples {
			s1 = int16(binary.LittleEndian.Uint16(pcm[(idx+1)*2 : (idx+1)*2+2]))
		}
		v := float64(s0) + (float64(s1)-float64(s0))*frac
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(int16(v)))
	}
	return out
}
