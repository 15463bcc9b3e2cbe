package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/dupegraph/internal/models"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "none"},
		{true, "b:true"},
		{1, "n:1"},
		{1.0, "n:1"},
		{0.25, "n:0.25"},
		{"ADD", `"ADD"`},
		{[]any{1, 2.5, "x"}, `(n:1,n:2.5,"x")`},
		{map[string]any{"b": 2, "a": 1}, `{"a"=n:1,"b"=n:2}`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Encode(tc.in), "Encode(%#v)", tc.in)
	}
}

func TestFingerprint_KeyIsUnambiguous(t *testing.T) {
	a := &Fingerprint{Fields: []string{`"T"`, linkField(0, []string{"x", "y"})}}
	b := &Fingerprint{Fields: []string{`"T"`, linkField(0, []string{"x"}), "y"}}
	assert.NotEqual(t, a.Key(), b.Key())
	assert.False(t, a.Equal(b))
}

func TestFieldCount(t *testing.T) {
	fps := []*Fingerprint{
		{Fields: []string{"a", "1", "2"}},
		{Fields: []string{InterfaceTag}},
	}
	assert.Equal(t, 2, FieldCount(fps))
}

func TestEvaluateRamp(t *testing.T) {
	ramp := &models.ColorRamp{
		Interpolation: "LINEAR",
		Elements: []models.RampElement{
			{Position: 1, Color: [4]float64{1, 1, 1, 1}},
			{Position: 0, Color: [4]float64{0, 0, 0, 1}},
		},
	}
	assert.Equal(t, [4]float64{0.5, 0.5, 0.5, 1}, EvaluateRamp(ramp, 0.5))
	assert.Equal(t, [4]float64{0, 0, 0, 1}, EvaluateRamp(ramp, -1))
	assert.Equal(t, [4]float64{1, 1, 1, 1}, EvaluateRamp(ramp, 2))

	ramp.Interpolation = "CONSTANT"
	assert.Equal(t, [4]float64{0, 0, 0, 1}, EvaluateRamp(ramp, 0.9))

	ramp.Interpolation = "EASE"
	assert.Equal(t, [4]float64{0.5, 0.5, 0.5, 1}, EvaluateRamp(ramp, 0.5))

	assert.Equal(t, [4]float64{}, EvaluateRamp(&models.ColorRamp{}, 0.5))
}

func TestEvaluateRamp_SplinesAreDeterministic(t *testing.T) {
	for _, mode := range []string{"B_SPLINE", "CARDINAL"} {
		ramp := &models.ColorRamp{
			Interpolation: mode,
			Elements: []models.RampElement{
				{Position: 0, Color: [4]float64{0, 0, 0, 1}},
				{Position: 0.3, Color: [4]float64{1, 0, 0, 1}},
				{Position: 1, Color: [4]float64{1, 1, 1, 1}},
			},
		}
		assert.Equal(t, EvaluateRamp(ramp, 0.6), EvaluateRamp(ramp, 0.6), mode)
	}
}
