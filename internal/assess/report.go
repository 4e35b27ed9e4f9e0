package assess

import "math"

// Status labels one aligned word in the error taxonomy.
type Status string

const (
	// StatusCorrect marks an exact or near-exact match.
	StatusCorrect Status = "correct"

	// StatusMispronunciation marks a close attempt at the target word
	// (character similarity above the mispronunciation threshold).
	StatusMispronunciation Status = "mispronunciation"

	// StatusSubstitution marks an unrelated word read in place of the target.
	StatusSubstitution Status = "substitution"

	// StatusDeletion marks a skipped target word.
	StatusDeletion Status = "deletion"

	// StatusInsertion marks an extra recognised word with no target.
	StatusInsertion Status = "insertion"

	// StatusStutter marks an inserted word that repeats its neighbour — a
	// normal disfluency, not a comprehension error.
	StatusStutter Status = "stutter"
)

// Token is a normalised word unit flowing through the pipeline. Target
// tokens carry only Text; recognised tokens additionally carry timing and
// confidence from the transcription boundary.
type Token struct {
	Text string

	// Start and End bound the token in the audio clip, in seconds.
	// Valid only when HasTiming is true.
	Start float64
	End   float64

	// Confidence is the acoustic-model probability in [0, 1].
	Confidence float64

	// PauseBefore is the silence before this token in seconds.
	PauseBefore float64

	// HasTiming reports whether Start/End carry meaningful values.
	HasTiming bool
}

// WordRecord is the per-word unit of reporting: one record per token
// consumed or produced by the classifier. Immutable once emitted.
type WordRecord struct {
	// Target is the expected word; empty for pure insertions.
	Target string `json:"target"`

	// Recognized is the word actually read; empty for deletions.
	Recognized string `json:"recognized"`

	// Status is the taxonomy label.
	Status Status `json:"status"`

	// Score is the 0–100 local word score (character similarity ×100).
	Score float64 `json:"score"`

	// Start and End bound the recognised word in seconds, when timing is
	// available.
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`

	// Pronunciation is the optional per-word embedding-based pronunciation
	// score. Unset when the deployment runs without an embedding provider
	// or when the word's audio slice is empty.
	Pronunciation *float64 `json:"pronunciation,omitempty"`
}

// ErrorDetail is one entry of the structured error list for UI display.
type ErrorDetail struct {
	Type Status `json:"type"`

	// Expected is the target word, Actual the recognised one ("(skipped)"
	// for deletions).
	Expected string `json:"expected"`
	Actual   string `json:"actual"`

	// Similarity is the character similarity ×100, present for
	// substitution-class errors.
	Similarity *float64 `json:"similarity,omitempty"`
}

// Counts holds the per-taxonomy tallies of one assessment.
type Counts struct {
	Correct           int `json:"correct_count"`
	Substitutions     int `json:"substitution_count"`
	Deletions         int `json:"deletion_count"`
	Insertions        int `json:"insertion_count"`
	Stutters          int `json:"stutter_count"`
	Mispronunciations int `json:"mispronunciation_count"`
}

// Metrics aggregates counts and rates for one assessment. Derived fresh per
// request — nothing here persists across assessments.
type Metrics struct {
	Counts

	// WPM is words read per minute over the spoken interval.
	WPM float64 `json:"wpm"`

	// AvgPause is the mean inter-word silence in seconds.
	AvgPause float64 `json:"avg_pause"`

	// Blocks counts pauses exceeding the struggle threshold.
	Blocks int `json:"block_count"`

	// WER is the plain word error rate over the target length, reported
	// alongside the empathy-weighted accuracy for consumers that want the
	// undifferentiated measure.
	WER float64 `json:"wer"`
}

// Components holds the sub-scores blended into the overall score. They are
// always exposed individually so downstream consumers can re-weight.
type Components struct {
	Accuracy float64 `json:"accuracy"`
	Fluency  float64 `json:"fluency"`
	Clarity  float64 `json:"clarity"`

	// Pronunciation is set only when the embedding-based scorer is active.
	Pronunciation *float64 `json:"pronunciation,omitempty"`
}

// Report is the final output of one assessment: one instance per processed
// utterance, with no identity beyond the request that created it.
type Report struct {
	// OverallScore is the composite in [0, 100], rounded to one decimal.
	OverallScore float64 `json:"overall_score"`

	Components Components `json:"components"`
	Metrics    Metrics    `json:"metrics"`

	// Words is the ordered per-word alignment.
	Words []WordRecord `json:"word_alignment"`

	// RecognizedText is the full text the transcriber heard.
	RecognizedText string `json:"recognized_text"`

	// Errors is the structured error list; empty for a perfect reading.
	Errors []ErrorDetail `json:"error_analysis,omitempty"`
}

// Round1 rounds a score to one decimal place for presentation. Internal
// aggregation always works on the unrounded values.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round3 rounds rates to three decimals; used for WER, which lives in [0, 1]
// and would lose all nuance at one decimal.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// clamp100 bounds a score to [0, 100].
func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
