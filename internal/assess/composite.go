package assess

// AccuracyScore computes the empathy-weighted text accuracy in [0, 100].
// Each error class is weighted by its penalty: substitutions (and
// mispronunciations, which are substitutions that came close) weigh most,
// stutters barely register. An empty target yields the defined zero, and a
// reading in which not a single target word was read correctly or
// near-correctly scores zero outright — the deletion weight must not turn
// total failure into partial credit.
func AccuracyScore(c Counts, targetLen int, pol Policy) float64 {
	if targetLen == 0 {
		return 0
	}
	if c.Correct+c.Mispronunciations == 0 {
		return 0
	}
	penalty := float64(c.Substitutions+c.Mispronunciations)*pol.PenaltySubstitution +
		float64(c.Deletions)*pol.PenaltyDeletion +
		float64(c.Insertions)*pol.PenaltyInsertion +
		float64(c.Stutters)*pol.PenaltyStutter

	raw := (float64(targetLen) - penalty) / float64(targetLen)
	return clamp100(raw * 100)
}

// WordErrorRate computes the undifferentiated WER: substituted, deleted,
// and inserted words over the target length. Stutters count as insertions
// here — WER by definition has no empathy. The value may exceed 1 when more
// words were inserted than the target holds.
func WordErrorRate(c Counts, targetLen int) float64 {
	errors := c.Substitutions + c.Mispronunciations + c.Deletions + c.Insertions + c.Stutters
	if targetLen == 0 {
		if errors == 0 {
			return 0
		}
		return 1
	}
	return float64(errors) / float64(targetLen)
}

// Compose blends the sub-scores into the overall score according to the
// deployment's composite variant. pronunciation is consulted only by the
// text/pronunciation scheme and may be nil, in which case that scheme falls
// back to the accuracy score alone.
func Compose(accuracy, fluency, clarity float64, pronunciation *float64, pol Policy) float64 {
	switch pol.Composite {
	case CompositeTextPronunciation:
		if pronunciation == nil {
			return clamp100(accuracy)
		}
		return clamp100(0.6*accuracy + 0.4**pronunciation)
	default:
		return clamp100(0.5*accuracy + 0.3*fluency + 0.2*clarity)
	}
}
