package assess_test

import (
	"testing"

	"github.com/MrWong99/oratio/internal/assess"
)

func tokens(words ...string) []assess.Token {
	out := make([]assess.Token, len(words))
	for i, w := range words {
		out[i] = assess.Token{
			Text:       w,
			Start:      float64(i) * 0.5,
			End:        float64(i)*0.5 + 0.4,
			Confidence: 0.9,
			HasTiming:  true,
		}
	}
	return out
}

func statuses(records []assess.WordRecord) []assess.Status {
	out := make([]assess.Status, len(records))
	for i, r := range records {
		out[i] = r.Status
	}
	return out
}

func TestClassify_PerfectReading(t *testing.T) {
	t.Parallel()

	target := []string{"the", "cat", "sat"}
	records, counts, errs := assess.Classify(target, tokens("the", "cat", "sat"), assess.DefaultPolicy())

	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	for i, r := range records {
		if r.Status != assess.StatusCorrect {
			t.Errorf("records[%d].Status = %q, want correct", i, r.Status)
		}
		if r.Score != 100 {
			t.Errorf("records[%d].Score = %v, want 100", i, r.Score)
		}
		if r.Start == nil || r.End == nil {
			t.Errorf("records[%d] missing timing", i)
		}
	}
	if counts.Correct != 3 {
		t.Errorf("Correct = %d, want 3", counts.Correct)
	}
	if len(errs) != 0 {
		t.Errorf("errs = %v, want none", errs)
	}
}

func TestClassify_LeadingRepeatIsStutter(t *testing.T) {
	t.Parallel()

	// The diff attributes a repeat to its earliest possible position, so
	// the extra "the" lands before the matched copy. It must still be
	// recognised as a stutter, not a plain insertion.
	target := []string{"the", "cat"}
	records, counts, errs := assess.Classify(target, tokens("the", "the", "cat"), assess.DefaultPolicy())

	want := []assess.Status{assess.StatusStutter, assess.StatusCorrect, assess.StatusCorrect}
	got := statuses(records)
	if len(got) != len(want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", got, want)
		}
	}
	if counts.Stutters != 1 || counts.Correct != 2 || counts.Insertions != 0 {
		t.Errorf("counts = %+v, want 1 stutter, 2 correct", counts)
	}
	if len(errs) != 0 {
		t.Errorf("stutters should not appear in the error list, got %v", errs)
	}
}

func TestClassify_MidSentenceStutter(t *testing.T) {
	t.Parallel()

	target := []string{"a", "big", "dog"}
	_, counts, _ := assess.Classify(target, tokens("a", "big", "big", "dog"), assess.DefaultPolicy())

	if counts.Stutters != 1 {
		t.Errorf("Stutters = %d, want 1", counts.Stutters)
	}
	if counts.Correct != 3 {
		t.Errorf("Correct = %d, want 3", counts.Correct)
	}
}

func TestClassify_Substitution(t *testing.T) {
	t.Parallel()

	records, counts, errs := assess.Classify([]string{"cat"}, tokens("dog"), assess.DefaultPolicy())

	if records[0].Status != assess.StatusSubstitution {
		t.Fatalf("Status = %q, want substitution", records[0].Status)
	}
	if counts.Substitutions != 1 {
		t.Errorf("Substitutions = %d, want 1", counts.Substitutions)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one entry", errs)
	}
	if errs[0].Type != assess.StatusSubstitution || errs[0].Expected != "cat" || errs[0].Actual != "dog" {
		t.Errorf("detail = %+v", errs[0])
	}
	if errs[0].Similarity == nil {
		t.Error("substitution detail missing similarity")
	}
}

func TestClassify_MispronunciationByRatio(t *testing.T) {
	t.Parallel()

	// "botiful" shares most of "beautiful" but not enough to count as
	// correct.
	records, counts, _ := assess.Classify([]string{"beautiful"}, tokens("botiful"), assess.DefaultPolicy())

	if records[0].Status != assess.StatusMispronunciation {
		t.Fatalf("Status = %q, want mispronunciation (score %v)", records[0].Status, records[0].Score)
	}
	if counts.Mispronunciations != 1 {
		t.Errorf("Mispronunciations = %d, want 1", counts.Mispronunciations)
	}
}

func TestClassify_MispronunciationByPhonetics(t *testing.T) {
	t.Parallel()

	// "koff" shares almost no letters with "cough" but sounds the same,
	// so the phonetic check rescues it from being a substitution.
	records, _, _ := assess.Classify([]string{"cough"}, tokens("koff"), assess.DefaultPolicy())

	if records[0].Status != assess.StatusMispronunciation {
		t.Fatalf("Status = %q, want mispronunciation (score %v)", records[0].Status, records[0].Score)
	}
}

func TestClassify_Deletion(t *testing.T) {
	t.Parallel()

	target := []string{"the", "red", "fox"}
	records, counts, errs := assess.Classify(target, tokens("the", "fox"), assess.DefaultPolicy())

	want := []assess.Status{assess.StatusCorrect, assess.StatusDeletion, assess.StatusCorrect}
	got := statuses(records)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", got, want)
		}
	}
	if counts.Deletions != 1 {
		t.Errorf("Deletions = %d, want 1", counts.Deletions)
	}
	if len(errs) != 1 || errs[0].Actual != "(skipped)" || errs[0].Expected != "red" {
		t.Errorf("errs = %+v, want one skipped entry for red", errs)
	}
	if records[1].Start != nil || records[1].End != nil {
		t.Error("deleted word must not carry timing")
	}
}

func TestClassify_ReplaceRunRemainderIsDeletion(t *testing.T) {
	t.Parallel()

	// A replace run with more target words than recognised ones pairs by
	// position; the unpaired target remainder was never attempted.
	target := []string{"alpha", "beta", "gamma"}
	records, counts, _ := assess.Classify(target, tokens("alpha", "xyz"), assess.DefaultPolicy())

	want := []assess.Status{assess.StatusCorrect, assess.StatusSubstitution, assess.StatusDeletion}
	got := statuses(records)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", got, want)
		}
	}
	if counts.Deletions != 1 || counts.Substitutions != 1 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestClassify_NonRepeatInsertions(t *testing.T) {
	t.Parallel()

	target := []string{"alpha", "beta"}
	_, counts, errs := assess.Classify(target, tokens("alpha", "xyz", "qrs", "beta"), assess.DefaultPolicy())

	if counts.Insertions != 2 {
		t.Errorf("Insertions = %d, want 2", counts.Insertions)
	}
	if counts.Stutters != 0 {
		t.Errorf("Stutters = %d, want 0", counts.Stutters)
	}
	// Insertions are counted but not listed as errors: they do not map to
	// a target word the display could highlight.
	if len(errs) != 0 {
		t.Errorf("errs = %v, want none", errs)
	}
}

func TestClassify_EmptyRecognized(t *testing.T) {
	t.Parallel()

	target := []string{"one", "two", "three"}
	records, counts, errs := assess.Classify(target, nil, assess.DefaultPolicy())

	if len(records) != 3 || counts.Deletions != 3 {
		t.Fatalf("records = %d, counts = %+v, want 3 deletions", len(records), counts)
	}
	if len(errs) != 3 {
		t.Errorf("errs = %d, want 3", len(errs))
	}
}

func TestClassify_DevanagariClose(t *testing.T) {
	t.Parallel()

	// Phonetic codes are empty for Devanagari, so the character ratio
	// alone must classify a close attempt as a mispronunciation.
	records, _, _ := assess.Classify([]string{"निकला"}, tokens("निकल"), assess.DefaultPolicy())

	if records[0].Status != assess.StatusCorrect && records[0].Status != assess.StatusMispronunciation {
		t.Fatalf("Status = %q, want correct or mispronunciation (score %v)", records[0].Status, records[0].Score)
	}
}
