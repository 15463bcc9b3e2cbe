package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dupegraph/internal/canon"
)

func fp(node string, fields ...string) *canon.Fingerprint {
	return &canon.Fingerprint{Node: node, Fields: fields}
}

func TestScore_Identity(t *testing.T) {
	a := []*canon.Fingerprint{fp("Math", `"Math"`, "b:false", "n:1"), fp("Value", `"Value"`, "b:false", "n:2")}
	b := []*canon.Fingerprint{fp("V", `"Value"`, "b:false", "n:2"), fp("M", `"Math"`, "b:false", "n:1")}
	assert.Equal(t, 1.0, Score(a, b))
	assert.Equal(t, 1.0, Score(a, a))
}

func TestScore_Empty(t *testing.T) {
	a := []*canon.Fingerprint{fp("Math", `"Math"`, "n:1")}
	assert.Zero(t, Score(nil, a))
	assert.Zero(t, Score(a, nil))
	assert.Zero(t, Score(nil, nil))
}

func TestScore_GreedyPairing(t *testing.T) {
	// 2 + 2 + 1 agreeing fields out of 3 + 3 + 3 on the larger side.
	x := []*canon.Fingerprint{
		fp("a1", `"A"`, "1", "2", "3"),
		fp("a2", `"A"`, "1", "2", "4"),
		fp("b1", `"B"`, "9", "9", "9"),
	}
	y := []*canon.Fingerprint{
		fp("a1", `"A"`, "1", "2", "5"),
		fp("a2", `"A"`, "7", "2", "4"),
		fp("b1", `"B"`, "9", "0", "0"),
	}
	want := 5 / math.Sqrt(9*5)
	assert.InDelta(t, want, Score(x, y), 1e-12)
}

func TestScore_Symmetric(t *testing.T) {
	x := []*canon.Fingerprint{
		fp("a", `"A"`, "1", "2"),
		fp("b", `"B"`, "3"),
		fp("c", `"C"`, "4", "5", "6"),
	}
	y := []*canon.Fingerprint{
		fp("a", `"A"`, "1", "9"),
		fp("c", `"C"`, "4", "5"),
	}
	z := []*canon.Fingerprint{
		fp("a", `"A"`, "1", "3"),
		fp("b", `"B"`, "4"),
		fp("c", `"C"`, "4", "5", "7"),
	}
	for _, pair := range [][2][]*canon.Fingerprint{{x, y}, {x, z}, {y, z}} {
		assert.Equal(t, Score(pair[0], pair[1]), Score(pair[1], pair[0]))
	}
}

func TestScore_NonIdenticalBelowOne(t *testing.T) {
	// Every field of the larger side agrees, but the collections differ.
	x := []*canon.Fingerprint{fp("a", `"A"`, "1"), fp("b", `"B"`)}
	y := []*canon.Fingerprint{fp("a", `"A"`, "1", "2")}
	s := Score(x, y)
	assert.Less(t, s, 1.0)
	assert.Equal(t, math.Nextafter(1, 0), s)
	assert.Equal(t, s, Score(y, x))
}

func TestScore_DisjointTypes(t *testing.T) {
	x := []*canon.Fingerprint{fp("a", `"A"`, "1")}
	y := []*canon.Fingerprint{fp("b", `"B"`, "1")}
	assert.Zero(t, Score(x, y))
}

func TestScore_Range(t *testing.T) {
	x := []*canon.Fingerprint{fp("a", `"A"`, "1", "2"), fp("b", `"B"`, "3")}
	y := []*canon.Fingerprint{fp("a", `"A"`, "1", "0"), fp("b", `"B"`, "0")}
	s := Score(x, y)
	assert.GreaterOrEqual(t, s, 0.0)
	assert.LessOrEqual(t, s, 1.0)
}

func TestNewPair(t *testing.T) {
	assert.Equal(t, Pair{A: "a", B: "b"}, NewPair("b", "a"))
	assert.Equal(t, NewPair("x", "y"), NewPair("y", "x"))
}

func TestFindSimilar(t *testing.T) {
	base := []*canon.Fingerprint{fp("a", `"A"`, "1", "2", "3", "4")}
	contents := map[string][]*canon.Fingerprint{
		"Base":  base,
		"Copy":  {fp("x", `"A"`, "1", "2", "3", "4")},
		"Close": {fp("a", `"A"`, "1", "2", "3", "0")},
		"Far":   {fp("b", `"B"`, "7")},
		"Empty": nil,
	}

	out := Scores{}
	FindSimilar(contents, 0.8, out)

	require.Contains(t, out, NewPair("Base", "Copy"))
	assert.Equal(t, 1.0, out[NewPair("Base", "Copy")])
	assert.InDelta(t, math.Sqrt(0.75), out[NewPair("Base", "Close")], 1e-12)
	assert.InDelta(t, math.Sqrt(0.75), out[NewPair("Close", "Copy")], 1e-12)
	assert.Len(t, out, 3)
	for p := range out {
		assert.Less(t, p.A, p.B)
		assert.NotEqual(t, "Empty", p.A)
		assert.NotEqual(t, "Empty", p.B)
	}
}

func TestFindSimilar_CheapRejection(t *testing.T) {
	contents := map[string][]*canon.Fingerprint{
		"Small": {fp("a", `"A"`, "1")},
		"Big":   {fp("a", `"A"`, "1", "2", "3", "4", "5", "6", "7", "8", "9", "10")},
	}
	out := Scores{}
	assert.Zero(t, FindSimilar(contents, 0.8, out))
	assert.Empty(t, out)
}

func TestFindSimilar_ThresholdMonotone(t *testing.T) {
	contents := map[string][]*canon.Fingerprint{
		"A": {fp("a", `"A"`, "1", "2", "3", "4"), fp("b", `"B"`, "1")},
		"B": {fp("a", `"A"`, "1", "2", "3", "0"), fp("b", `"B"`, "1")},
		"C": {fp("a", `"A"`, "1", "2", "0", "0"), fp("b", `"B"`, "2")},
		"D": {fp("a", `"A"`, "1", "2", "3", "4"), fp("b", `"B"`, "1")},
	}
	low, high := Scores{}, Scores{}
	FindSimilar(contents, 0.5, low)
	FindSimilar(contents, 0.9, high)
	for p, s := range high {
		require.Contains(t, low, p)
		assert.Equal(t, s, low[p])
	}
}
