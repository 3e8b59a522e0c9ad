package compose

import (
	"image/color"

	"ytthumb/internal/style"
)

// GradientStop is one stop of the vertical darkening overlay. Pos runs from
// 0 at the top edge to 1 at the bottom.
type GradientStop struct {
	Pos   float64
	Alpha float64
}

// Shadow mirrors a canvas drop shadow. Blur is the canvas shadowBlur value;
// the Gaussian sigma is half of it.
type Shadow struct {
	Color   color.NRGBA
	Blur    float64
	OffsetX int
	OffsetY int
}

// Profile holds the fixed drawing constants of one schema.
type Profile struct {
	BlurSigma  float64
	Brightness float64
	Saturation float64
	Oversize   int
	Gradient   []GradientStop

	UserMaxHeight float64 // fraction of canvas height
	UserMaxWidth  float64 // fraction of canvas width
	UserShadow    Shadow

	TextShadow Shadow

	// FixedStroke, when set, replaces the analyzed stroke color and width.
	FixedStroke *Stroke
}

// Stroke is the outline drawn under the caption fill.
type Stroke struct {
	Color color.NRGBA
	Width float64
}

var textShadow = Shadow{Color: color.NRGBA{A: 204}, Blur: 10, OffsetX: 2, OffsetY: 2}

var percentProfile = Profile{
	BlurSigma:  25,
	Brightness: 0.4,
	Saturation: 1.2,
	Oversize:   50,
	Gradient: []GradientStop{
		{Pos: 0, Alpha: 0.2},
		{Pos: 0.5, Alpha: 0.1},
		{Pos: 1, Alpha: 0.5},
	},
	UserMaxHeight: 0.9,
	UserMaxWidth:  0.7,
	UserShadow:    Shadow{Color: color.NRGBA{A: 153}, Blur: 40, OffsetY: 15},
	TextShadow:    textShadow,
}

var zoneProfile = Profile{
	BlurSigma:  20,
	Brightness: 0.5,
	Saturation: 1.0,
	Oversize:   40,
	Gradient: []GradientStop{
		{Pos: 0, Alpha: 0.3},
		{Pos: 1, Alpha: 0.6},
	},
	UserMaxHeight: 0.85,
	UserMaxWidth:  0.6,
	UserShadow:    Shadow{Color: color.NRGBA{A: 128}, Blur: 30, OffsetY: 10},
	TextShadow:    textShadow,
	FixedStroke:   &Stroke{Color: color.NRGBA{A: 204}, Width: 8},
}

// ProfileFor returns the drawing constants of schema.
func ProfileFor(schema style.Schema) Profile {
	if schema == style.SchemaZone {
		return zoneProfile
	}
	return percentProfile
}

// gradientAlpha interpolates the overlay alpha at t in [0,1].
func (p Profile) gradientAlpha(t float64) float64 {
	stops := p.Gradient
	if len(stops) == 0 {
		return 0
	}
	if t <= stops[0].Pos {
		return stops[0].Alpha
	}
	for i := 1; i < len(stops); i++ {
		a, b := stops[i-1], stops[i]
		if t <= b.Pos {
			if b.Pos == a.Pos {
				return b.Alpha
			}
			f := (t - a.Pos) / (b.Pos - a.Pos)
			return a.Alpha + f*(b.Alpha-a.Alpha)
		}
	}
	return stops[len(stops)-1].Alpha
}
