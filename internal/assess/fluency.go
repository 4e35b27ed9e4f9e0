package assess

// FluencyStats holds the pace and dysfluency measures derived from per-word
// timing, plus the resulting 0–100 fluency score.
type FluencyStats struct {
	WPM      float64
	AvgPause float64
	Blocks   int
	Score    float64
}

// minDurationMin floors the spoken interval to avoid division by zero on
// zero-duration or single-token clips.
const minDurationMin = 0.001

// AnalyzeFluency derives words-per-minute and pause statistics from the
// recognised tokens' timing and maps the pace to a fluency score.
//
// The first token's PauseBefore is ignored: initial latency is thinking
// time, not a dysfluency. accuracy is only consulted by the accuracy-blend
// variant.
func AnalyzeFluency(tokens []Token, accuracy float64, pol Policy) FluencyStats {
	var stats FluencyStats
	if len(tokens) == 0 {
		stats.Score = fluencyScore(0, accuracy, pol)
		return stats
	}

	durationMin := (tokens[len(tokens)-1].End - tokens[0].Start) / 60
	if durationMin < minDurationMin {
		durationMin = minDurationMin
	}
	stats.WPM = float64(len(tokens)) / durationMin

	var pauseSum float64
	for _, tok := range tokens[1:] {
		pauseSum += tok.PauseBefore
		if tok.PauseBefore > pol.BlockThreshold {
			stats.Blocks++
		}
	}
	if n := len(tokens) - 1; n > 0 {
		stats.AvgPause = pauseSum / float64(n)
	}

	stats.Score = fluencyScore(stats.WPM, accuracy, pol)
	return stats
}

// fluencyScore maps pace (and, for the blend variant, accuracy) to [0, 100].
func fluencyScore(wpm, accuracy float64, pol Policy) float64 {
	switch pol.Fluency {
	case FluencyAccuracyBlend:
		return clamp100(0.6*accuracy + 0.4*paceScore(wpm, pol))
	default:
		return comfortScore(wpm, pol)
	}
}

// comfortScore is the comfort-curve mapping: reading faster than the target
// is not rewarded, reading slower than the floor is not punished further.
func comfortScore(wpm float64, pol Policy) float64 {
	switch {
	case wpm >= pol.TargetWPM:
		return 100
	case wpm <= pol.FloorWPM:
		return pol.FloorScore
	default:
		return clamp100(wpm / pol.TargetWPM * 100)
	}
}

// paceScore is the blend variant's pace sub-score: the comfort ramp up to
// the target, with a linear penalty for rushing past RushWPM.
func paceScore(wpm float64, pol Policy) float64 {
	if wpm > pol.RushWPM {
		return clamp100(100 - (wpm - pol.RushWPM))
	}
	return clamp100(wpm / pol.TargetWPM * 100)
}
