package assess

import (
	"github.com/antzucaro/matchr"

	"github.com/MrWong99/oratio/internal/align"
)

// Classify walks the edit script between the target tokens and the
// recognised tokens and emits one WordRecord per aligned unit, together with
// the running taxonomy counts and the structured error list.
//
// Replace runs whose sides differ in length are aligned by position; the
// unpaired remainder on either side is classified as deletions or insertions
// respectively. Inserted words that repeat an adjacent recognised token are
// reclassified as stutters — the diff may attribute a repeat like
// "the the" to either copy, so both neighbours are checked.
func Classify(targetTokens []string, recTokens []Token, pol Policy) ([]WordRecord, Counts, []ErrorDetail) {
	recTexts := make([]string, len(recTokens))
	for i, tok := range recTokens {
		recTexts[i] = tok.Text
	}

	var (
		records []WordRecord
		counts  Counts
		errs    []ErrorDetail
	)

	for _, op := range align.Diff(targetTokens, recTexts) {
		switch op.Kind {
		case align.OpEqual:
			for k := 0; k < op.A2-op.A1; k++ {
				rec := recTokens[op.B1+k]
				records = append(records, correctRecord(targetTokens[op.A1+k], rec))
				counts.Correct++
			}

		case align.OpReplace:
			aLen, bLen := op.A2-op.A1, op.B2-op.B1
			n := max(aLen, bLen)
			for k := 0; k < n; k++ {
				switch {
				case k >= bLen: // unpaired target remainder
					records = append(records, deletionRecord(targetTokens[op.A1+k]))
					counts.Deletions++
					errs = append(errs, deletionDetail(targetTokens[op.A1+k]))
				case k >= aLen: // unpaired recognised remainder
					rec, detail := insertionRecord(recTokens, op.B1+k, &counts)
					records = append(records, rec)
					if detail != nil {
						errs = append(errs, *detail)
					}
				default:
					rec, detail := replacedRecord(targetTokens[op.A1+k], recTokens[op.B1+k], pol, &counts)
					records = append(records, rec)
					if detail != nil {
						errs = append(errs, *detail)
					}
				}
			}

		case align.OpDelete:
			for i := op.A1; i < op.A2; i++ {
				records = append(records, deletionRecord(targetTokens[i]))
				counts.Deletions++
				errs = append(errs, deletionDetail(targetTokens[i]))
			}

		case align.OpInsert:
			for j := op.B1; j < op.B2; j++ {
				rec, detail := insertionRecord(recTokens, j, &counts)
				records = append(records, rec)
				if detail != nil {
					errs = append(errs, *detail)
				}
			}
		}
	}

	return records, counts, errs
}

func correctRecord(target string, rec Token) WordRecord {
	r := WordRecord{
		Target:     target,
		Recognized: rec.Text,
		Status:     StatusCorrect,
		Score:      100,
	}
	attachTiming(&r, rec)
	return r
}

func deletionRecord(target string) WordRecord {
	return WordRecord{Target: target, Status: StatusDeletion}
}

func deletionDetail(target string) ErrorDetail {
	return ErrorDetail{Type: StatusDeletion, Expected: target, Actual: "(skipped)"}
}

// replacedRecord scores a positionally paired target/recognised word by
// character similarity and classifies it as correct, mispronunciation, or
// substitution.
func replacedRecord(target string, rec Token, pol Policy, counts *Counts) (WordRecord, *ErrorDetail) {
	ratio := align.Ratio(target, rec.Text)
	r := WordRecord{
		Target:     target,
		Recognized: rec.Text,
		Score:      Round1(ratio * 100),
	}
	attachTiming(&r, rec)

	if ratio >= pol.CorrectRatio {
		r.Status = StatusCorrect
		counts.Correct++
		return r, nil
	}

	if ratio > pol.MispronunciationRatio || phoneticallyClose(target, rec.Text) {
		r.Status = StatusMispronunciation
		counts.Mispronunciations++
	} else {
		r.Status = StatusSubstitution
		counts.Substitutions++
	}

	sim := Round1(ratio * 100)
	return r, &ErrorDetail{Type: r.Status, Expected: target, Actual: rec.Text, Similarity: &sim}
}

// insertionRecord classifies the inserted recognised token at index j,
// checking both neighbours for self-repetition.
func insertionRecord(recTokens []Token, j int, counts *Counts) (WordRecord, *ErrorDetail) {
	rec := recTokens[j]
	r := WordRecord{Recognized: rec.Text}
	attachTiming(&r, rec)

	stutter := (j > 0 && recTokens[j-1].Text == rec.Text) ||
		(j+1 < len(recTokens) && recTokens[j+1].Text == rec.Text)
	if stutter {
		r.Status = StatusStutter
		counts.Stutters++
		return r, nil
	}

	r.Status = StatusInsertion
	counts.Insertions++
	return r, nil
}

// phoneticallyClose reports whether two words share a Double Metaphone code.
// This rescues close attempts whose spelling diverges more than their sound
// ("fox" vs "phocks"). Metaphone produces empty codes for non-Latin scripts,
// in which case this never fires and the similarity ratio alone decides.
func phoneticallyClose(a, b string) bool {
	p1, s1 := matchr.DoubleMetaphone(a)
	p2, s2 := matchr.DoubleMetaphone(b)
	if p1 == "" && s1 == "" {
		return false
	}
	for _, x := range []string{p1, s1} {
		if x == "" {
			continue
		}
		if x == p2 || (s2 != "" && x == s2) {
			return true
		}
	}
	return false
}

func attachTiming(r *WordRecord, tok Token) {
	if !tok.HasTiming {
		return
	}
	start, end := tok.Start, tok.End
	r.Start, r.End = &start, &end
}
