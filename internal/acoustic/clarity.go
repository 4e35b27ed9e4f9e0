// Package acoustic scores properties of the raw recording: how clearly the
// reader spoke and how closely their pronunciation matches a reference
// rendition.
package acoustic

import (
	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/stt"
)

// neutralVolume is assumed when the signal cannot be measured, so a broken
// upload does not zero out the clarity component.
const neutralVolume = 0.5

// Clarity rates intelligibility from transcription confidence and recording
// volume. The zero value is not usable; use NewClarity.
type Clarity struct {
	// volumeThreshold is the RMS level treated as fully audible.
	volumeThreshold float64
}

// NewClarity creates a clarity scorer. volumeThreshold is the normalised RMS
// level at or above which the recording counts as fully audible.
func NewClarity(volumeThreshold float64) *Clarity {
	return &Clarity{volumeThreshold: volumeThreshold}
}

// Clarity returns the 0–100 clarity score: 80% mean transcription confidence,
// 20% capped volume. A clip with no recognised words scores on volume alone
// with zero confidence.
func (c *Clarity) Clarity(sig audio.Signal, words []stt.Word) float64 {
	var conf float64
	if len(words) > 0 {
		for _, w := range words {
			conf += w.Confidence
		}
		conf /= float64(len(words))
	}

	volume := neutralVolume
	if !sig.Empty() && c.volumeThreshold > 0 {
		volume = sig.RMS() / c.volumeThreshold
		if volume > 1 {
			volume = 1
		}
	}

	score := (0.8*conf + 0.2*volume) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
