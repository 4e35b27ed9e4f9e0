// Package align computes edit scripts between token sequences using
// longest-common-subsequence diffing with standard diff semantics: maximal
// common runs are "equal"; a run differing on both sides is "replace";
// one-sided runs are "delete" (target only) or "insert" (recognised only).
//
// Matching is exact at this stage — fuzzy similarity between replaced words
// is applied later by the classifier using Ratio. Tie-breaking between
// equal-cost alignments prefers the earliest common elements, matching the
// conventional diff bias. The result is deterministic: identical inputs
// always produce an identical opcode sequence.
package align

// OpKind classifies one alignment operation.
type OpKind string

const (
	OpEqual   OpKind = "equal"
	OpReplace OpKind = "replace"
	OpDelete  OpKind = "delete"
	OpInsert  OpKind = "insert"
)

// Op is one alignment operation covering target tokens [A1, A2) and
// recognised tokens [B1, B2). Either range may be empty: B1 == B2 for
// OpDelete, A1 == A2 for OpInsert.
//
// The ordered concatenation of all Op ranges from Diff reconstructs both
// input sequences exactly — no gaps, no overlaps.
type Op struct {
	Kind           OpKind
	A1, A2, B1, B2 int
}

// Diff aligns the target sequence a against the recognised sequence b and
// returns the covering opcode sequence. Two empty sequences yield no ops;
// an empty b yields a single delete covering all of a, and vice versa.
func Diff(a, b []string) []Op {
	blocks := matchingBlocks(a, b)

	var ops []Op
	ai, bi := 0, 0
	for _, m := range blocks {
		// Gap before this block: something differs on one or both sides.
		switch {
		case ai < m.a && bi < m.b:
			ops = append(ops, Op{Kind: OpReplace, A1: ai, A2: m.a, B1: bi, B2: m.b})
		case ai < m.a:
			ops = append(ops, Op{Kind: OpDelete, A1: ai, A2: m.a, B1: bi, B2: bi})
		case bi < m.b:
			ops = append(ops, Op{Kind: OpInsert, A1: ai, A2: ai, B1: bi, B2: m.b})
		}
		if m.size > 0 {
			ops = append(ops, Op{Kind: OpEqual, A1: m.a, A2: m.a + m.size, B1: m.b, B2: m.b + m.size})
		}
		ai, bi = m.a+m.size, m.b+m.size
	}
	return ops
}

// Ratio computes the character-level LCS similarity of two words in [0, 1]:
// twice the number of matching runes divided by the total rune count. Two
// empty strings are identical (ratio 1); one empty side scores 0.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}

	var matched int
	for _, m := range matchingBlocks(ra, rb) {
		matched += m.size
	}
	return 2 * float64(matched) / float64(total)
}

// block is one maximal matching run: a[a:a+size] == b[b:b+size].
type block struct {
	a, b, size int
}

// matchingBlocks returns the maximal matching runs between a and b in
// ascending order, terminated by a zero-size sentinel at (len(a), len(b)).
// The algorithm recursively takes the longest matching run of the remaining
// window, biased towards the earliest position on ties.
func matchingBlocks[T comparable](a, b []T) []block {
	// Index element -> positions in b, built once and shared by every
	// window of the recursion.
	b2j := make(map[T][]int, len(b))
	for j, el := range b {
		b2j[el] = append(b2j[el], j)
	}

	type window struct{ alo, ahi, blo, bhi int }
	queue := []window{{0, len(a), 0, len(b)}}

	var found []block
	for len(queue) > 0 {
		w := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		m := longestMatch(a, b2j, w.alo, w.ahi, w.blo, w.bhi)
		if m.size == 0 {
			continue
		}
		found = append(found, m)
		queue = append(queue,
			window{w.alo, m.a, w.blo, m.b},
			window{m.a + m.size, w.ahi, m.b + m.size, w.bhi},
		)
	}

	sortBlocks(found)
	found = append(found, block{a: len(a), b: len(b)})
	return found
}

// longestMatch finds the longest matching run within a[alo:ahi] and
// b[blo:bhi]. Ties go to the run starting earliest in a, then earliest in b.
func longestMatch[T comparable](a []T, b2j map[T][]int, alo, ahi, blo, bhi int) block {
	best := block{a: alo, b: blo}

	// j2len[j] = length of the longest run ending at a[i-1], b[j-1].
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		next := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > best.size {
				best = block{a: i - k + 1, b: j - k + 1, size: k}
			}
		}
		j2len = next
	}
	return best
}

// sortBlocks orders blocks by position. Insertion sort is fine at the block
// counts produced by word sequences.
func sortBlocks(bs []block) {
	for i := 1; i < len(bs); i++ {
		for j := i; j > 0 && bs[j].a < bs[j-1].a; j-- {
			bs[j], bs[j-1] = bs[j-1], bs[j]
		}
	}
}
