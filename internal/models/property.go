package models

// PropertyCategory is the closed set of node property shapes.
type PropertyCategory int

const (
	PropScalar PropertyCategory = iota
	PropArray
	PropCurve
	PropGradient
	PropImage
	PropRef
)

// Property is a non-socket node setting. Exactly one of the payload fields is
// expected to be set; a property with none of them is a scalar with a nil value.
type Property struct {
	Name     string        `yaml:"name" json:"name"`
	Value    any           `yaml:"value,omitempty" json:"value,omitempty"`
	Array    []any         `yaml:"array,omitempty" json:"array,omitempty"`
	Curve    *CurveMapping `yaml:"curve,omitempty" json:"curve,omitempty"`
	Gradient *ColorRamp    `yaml:"gradient,omitempty" json:"gradient,omitempty"`
	Image    *ImageRef     `yaml:"image,omitempty" json:"image,omitempty"`
	Ref      *ResourceRef  `yaml:"ref,omitempty" json:"ref,omitempty"`
}

// Category reports which payload the property carries.
func (p *Property) Category() PropertyCategory {
	switch {
	case p.Curve != nil:
		return PropCurve
	case p.Gradient != nil:
		return PropGradient
	case p.Image != nil:
		return PropImage
	case p.Ref != nil:
		return PropRef
	case p.Array != nil:
		return PropArray
	}
	return PropScalar
}

// CurveMapping is a multi-curve tone mapping widget.
type CurveMapping struct {
	BlackLevel []float64 `yaml:"black_level,omitempty" json:"black_level,omitempty"`
	WhiteLevel []float64 `yaml:"white_level,omitempty" json:"white_level,omitempty"`
	Extend     string    `yaml:"extend,omitempty" json:"extend,omitempty"`
	Tone       string    `yaml:"tone,omitempty" json:"tone,omitempty"`
	UseClip    bool      `yaml:"use_clip,omitempty" json:"use_clip,omitempty"`
	ClipMaxX   float64   `yaml:"clip_max_x" json:"clip_max_x"`
	ClipMaxY   float64   `yaml:"clip_max_y" json:"clip_max_y"`
	ClipMinX   float64   `yaml:"clip_min_x" json:"clip_min_x"`
	ClipMinY   float64   `yaml:"clip_min_y" json:"clip_min_y"`
	Curves     []Curve   `yaml:"curves,omitempty" json:"curves,omitempty"`
}

// Curve is one channel of a CurveMapping.
type Curve struct {
	Points []CurvePoint `yaml:"points" json:"points"`
}

// CurvePoint is a control point of a curve.
type CurvePoint struct {
	Location   [2]float64 `yaml:"location" json:"location"`
	HandleType string     `yaml:"handle_type,omitempty" json:"handle_type,omitempty"`
}

// ColorRamp is a color gradient widget.
type ColorRamp struct {
	ColorMode        string        `yaml:"color_mode,omitempty" json:"color_mode,omitempty"`
	HueInterpolation string        `yaml:"hue_interpolation,omitempty" json:"hue_interpolation,omitempty"`
	Interpolation    string        `yaml:"interpolation,omitempty" json:"interpolation,omitempty"`
	Elements         []RampElement `yaml:"elements" json:"elements"`
}

// RampElement is a color stop of a ColorRamp.
type RampElement struct {
	Position float64    `yaml:"position" json:"position"`
	Color    [4]float64 `yaml:"color" json:"color"`
}

// ImageRef points a node at an image resource.
type ImageRef struct {
	Image string     `yaml:"name" json:"name"`
	User  *ImageUser `yaml:"user,omitempty" json:"user,omitempty"`
}

// ImageUser holds the per-node playback settings of an image sequence or movie.
type ImageUser struct {
	FrameDuration  int  `yaml:"frame_duration" json:"frame_duration"`
	FrameStart     int  `yaml:"frame_start" json:"frame_start"`
	FrameOffset    int  `yaml:"frame_offset" json:"frame_offset"`
	UseCyclic      bool `yaml:"use_cyclic,omitempty" json:"use_cyclic,omitempty"`
	UseAutoRefresh bool `yaml:"use_auto_refresh,omitempty" json:"use_auto_refresh,omitempty"`
}
