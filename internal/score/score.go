// Package score compares fingerprint collections and collects the pairs of
// resources that are similar enough to report.
package score

import (
	"math"
	"sort"

	"github.com/starford/dupegraph/internal/canon"
)

// rejectMargin is added to the field-count ratio before comparing it with
// the threshold in the cheap rejection step.
const rejectMargin = 0.1

// belowOne is the highest score a non-identical pair can report.
var belowOne = math.Nextafter(1, 0)

// Pair is an unordered pair of resource names, stored with A < B.
type Pair struct {
	A, B string
}

// NewPair orders a and b.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Scores maps pairs to their similarity in (0, 1].
type Scores map[Pair]float64

// Score returns the similarity of two fingerprint collections in [0, 1].
// Identical multisets score exactly 1; anything else scores below 1.
func Score(a, b []*canon.Fingerprint) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ka, kb := canon.SortedKeys(a), canon.SortedKeys(b)
	if equalKeys(ka, kb) {
		return 1
	}

	large, small := a, b
	if !isLarger(a, b, ka, kb) {
		large, small = b, a
	}

	s1 := canon.FieldCount(large)

	smallByType := bucket(small)
	largeByType := bucket(large)
	types := make([]string, 0, len(largeByType))
	for t := range largeByType {
		types = append(types, t)
	}
	sort.Strings(types)

	s2 := 0
	for _, t := range types {
		if other, ok := smallByType[t]; ok {
			s2 += pairNodes(largeByType[t], other)
		}
	}

	if s1 == 0 || s2 == 0 {
		return 0
	}
	r := float64(s2) / math.Sqrt(float64(s1)*float64(s2))
	if r >= 1 {
		return belowOne
	}
	return r
}

// isLarger decides which side drives the normalisation so that the result
// does not depend on argument order: more fingerprints, then more fields,
// then the lexicographically smaller key list.
func isLarger(a, b []*canon.Fingerprint, ka, kb []string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	if fa, fb := canon.FieldCount(a), canon.FieldCount(b); fa != fb {
		return fa > fb
	}
	for i := range ka {
		if ka[i] != kb[i] {
			return ka[i] < kb[i]
		}
	}
	return true
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func bucket(fps []*canon.Fingerprint) map[string][]*canon.Fingerprint {
	out := make(map[string][]*canon.Fingerprint)
	for _, f := range fps {
		out[f.Type()] = append(out[f.Type()], f)
	}
	return out
}

type candidate struct {
	i, j      int
	cost, dot int
}

// pairNodes greedily matches fingerprints of one type, cheapest first, and
// returns the summed agreement of the accepted pairs.
func pairNodes(large, small []*canon.Fingerprint) int {
	cands := make([]candidate, 0, len(large)*len(small))
	for i, p := range large {
		pf := p.Comparable()
		for j, q := range small {
			dot := agreement(pf, q.Comparable())
			cands = append(cands, candidate{i: i, j: j, cost: len(pf) - dot, dot: dot})
		}
	}
	sort.SliceStable(cands, func(x, y int) bool { return cands[x].cost < cands[y].cost })

	usedL := make([]bool, len(large))
	usedS := make([]bool, len(small))
	sum := 0
	for _, c := range cands {
		if usedL[c.i] || usedS[c.j] {
			continue
		}
		usedL[c.i], usedS[c.j] = true, true
		sum += c.dot
	}
	return sum
}

// agreement counts position-aligned equal fields. Positions present on only
// one side never match.
func agreement(a, b []string) int {
	n := min(len(a), len(b))
	dot := 0
	for k := 0; k < n; k++ {
		if a[k] == b[k] {
			dot++
		}
	}
	return dot
}

// FindSimilar scores every unordered pair of collections and records the
// pairs scoring at or above threshold into out. Empty collections are never
// reported. It returns the number of pairs that were fully scored.
func FindSimilar(contents map[string][]*canon.Fingerprint, threshold float64, out Scores) int {
	names := make([]string, 0, len(contents))
	for name, fps := range contents {
		if len(fps) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	fields := make(map[string]int, len(names))
	for _, n := range names {
		fields[n] = canon.FieldCount(contents[n])
	}

	scored := 0
	for i, a := range names {
		for _, b := range names[i+1:] {
			lo, hi := fields[a], fields[b]
			if lo > hi {
				lo, hi = hi, lo
			}
			if hi > 0 && float64(lo)/float64(hi)+rejectMargin < threshold {
				continue
			}

			scored++
			s := Score(contents[a], contents[b])
			if s == 0 || s < threshold {
				continue
			}
			out[NewPair(a, b)] = s
		}
	}
	return scored
}
