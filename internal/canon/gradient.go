package canon

import (
	"sort"

	"github.com/starford/dupegraph/internal/models"
)

// cardinal spline tension used by the gradient widget.
const cardinalTension = 0.71

// EvaluateRamp samples a color ramp at pos. Interpolation happens in RGB
// space; the ramp's color mode is compared as a separate field.
func EvaluateRamp(r *models.ColorRamp, pos float64) [4]float64 {
	els := make([]models.RampElement, len(r.Elements))
	copy(els, r.Elements)
	sort.SliceStable(els, func(i, j int) bool { return els[i].Position < els[j].Position })

	switch {
	case len(els) == 0:
		return [4]float64{}
	case pos <= els[0].Position:
		return els[0].Color
	case pos >= els[len(els)-1].Position:
		return els[len(els)-1].Color
	}

	i := sort.Search(len(els), func(k int) bool { return els[k].Position > pos }) - 1
	a, b := els[i], els[i+1]
	t := 0.0
	if span := b.Position - a.Position; span > 0 {
		t = (pos - a.Position) / span
	}

	switch r.Interpolation {
	case "CONSTANT":
		return a.Color
	case "EASE":
		return lerp(a.Color, b.Color, t*t*(3-2*t))
	case "B_SPLINE", "CARDINAL":
		prev := els[max(i-1, 0)].Color
		next := els[min(i+2, len(els)-1)].Color
		w := splineWeights(r.Interpolation, t)
		var out [4]float64
		for c := range out {
			out[c] = w[0]*prev[c] + w[1]*a.Color[c] + w[2]*b.Color[c] + w[3]*next[c]
		}
		return out
	}
	return lerp(a.Color, b.Color, t)
}

func lerp(a, b [4]float64, t float64) [4]float64 {
	var out [4]float64
	for c := range out {
		out[c] = a[c] + (b[c]-a[c])*t
	}
	return out
}

func splineWeights(kind string, t float64) [4]float64 {
	t2 := t * t
	t3 := t2 * t
	if kind == "CARDINAL" {
		fc := cardinalTension
		return [4]float64{
			-fc*t3 + 2*fc*t2 - fc*t,
			(2-fc)*t3 + (fc-3)*t2 + 1,
			(fc-2)*t3 + (3-2*fc)*t2 + fc*t,
			fc*t3 - fc*t2,
		}
	}
	return [4]float64{
		-t3/6 + t2/2 - t/2 + 1.0/6,
		t3/2 - t2 + 2.0/3,
		-t3/2 + t2/2 + t/2 + 1.0/6,
		t3 / 6,
	}
}
