package assess

// FluencyVariant selects the formula mapping pace to the fluency score.
type FluencyVariant string

const (
	// FluencyComfortCurve scores reading pace against a comfortable-reading
	// target: a fixed floor below the struggling threshold, a fixed ceiling
	// at the target WPM, linear in between. The default.
	FluencyComfortCurve FluencyVariant = "comfort_curve"

	// FluencyAccuracyBlend blends accuracy with a pace sub-score that
	// additionally penalises rushing: fluency = 0.6×accuracy + 0.4×pace.
	FluencyAccuracyBlend FluencyVariant = "accuracy_blend"
)

// CompositeVariant selects the canonical blending scheme for the overall
// score. Fixed per deployment, never per request.
type CompositeVariant string

const (
	// CompositeWeighted blends accuracy 50 %, fluency 30 %, clarity 20 %.
	// The default.
	CompositeWeighted CompositeVariant = "weighted_components"

	// CompositeTextPronunciation blends text score 60 % and the
	// embedding-based pronunciation score 40 %, with no separate fluency
	// term. Requires an embedding provider.
	CompositeTextPronunciation CompositeVariant = "text_pronunciation"
)

// Policy carries the tuning constants of the scoring core. The thresholds
// are empirical values, not derived — they are surfaced here so deployments
// can override them in configuration instead of patching code.
type Policy struct {
	// CorrectRatio is the character-similarity ratio at or above which a
	// replaced word still counts as read correctly.
	CorrectRatio float64

	// MispronunciationRatio is the similarity ratio above which a wrong
	// word is a close attempt (mispronunciation) rather than an unrelated
	// substitution.
	MispronunciationRatio float64

	// PenaltySubstitution..PenaltyStutter weight each error class in the
	// accuracy computation. Stutters weigh least: self-correction is a
	// normal disfluency, not a misreading.
	PenaltySubstitution float64
	PenaltyDeletion     float64
	PenaltyInsertion    float64
	PenaltyStutter      float64

	// BlockThreshold is the pause duration in seconds above which a pause
	// counts as a block (a struggle).
	BlockThreshold float64

	// TargetWPM is the words-per-minute rate scored as fully fluent.
	TargetWPM float64

	// FloorWPM is the rate at or below which the comfort curve returns
	// FloorScore.
	FloorWPM   float64
	FloorScore float64

	// RushWPM is the rate above which the accuracy-blend pace score starts
	// penalising speed-reading.
	RushWPM float64

	// VolumeThreshold is the RMS level treated as full speech loudness by
	// the clarity scorer.
	VolumeThreshold float64

	Fluency   FluencyVariant
	Composite CompositeVariant
}

// DefaultPolicy returns the tuning constants the system ships with.
func DefaultPolicy() Policy {
	return Policy{
		CorrectRatio:          0.8,
		MispronunciationRatio: 0.4,
		PenaltySubstitution:   1.0,
		PenaltyDeletion:       0.8,
		PenaltyInsertion:      0.4,
		PenaltyStutter:        0.1,
		BlockThreshold:        1.5,
		TargetWPM:             110,
		FloorWPM:              20,
		FloorScore:            20,
		RushWPM:               160,
		VolumeThreshold:       0.01,
		Fluency:               FluencyComfortCurve,
		Composite:             CompositeWeighted,
	}
}
