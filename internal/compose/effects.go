package compose

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

// sigmas at or above this blur at quarter resolution
const downscaleSigma = 8.0

// gaussian blurs img with the given sigma. Large sigmas are applied to a
// quarter-size copy and scaled back, which is visually equivalent for the
// soft backgrounds and shadows drawn here.
func gaussian(img image.Image, sigma float64) *image.NRGBA {
	if sigma <= 0 {
		return imaging.Clone(img)
	}
	if sigma < downscaleSigma {
		return imaging.Blur(img, sigma)
	}

	b := img.Bounds()
	sw := max(1, b.Dx()/4)
	sh := max(1, b.Dy()/4)
	small := imaging.Resize(img, sw, sh, imaging.Linear)
	small = imaging.Blur(small, sigma/4)
	return imaging.Resize(small, b.Dx(), b.Dy(), imaging.Linear)
}

// filterColor applies the canvas brightness() then saturate() filters.
func filterColor(img image.Image, brightness, saturation float64) *image.NRGBA {
	s := saturation
	m := [3][3]float64{
		{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s},
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		r := float64(c.R) * brightness
		g := float64(c.G) * brightness
		bl := float64(c.B) * brightness
		return color.NRGBA{
			R: clampByte(m[0][0]*r + m[0][1]*g + m[0][2]*bl),
			G: clampByte(m[1][0]*r + m[1][1]*g + m[1][2]*bl),
			B: clampByte(m[2][0]*r + m[2][1]*g + m[2][2]*bl),
			A: c.A,
		}
	})
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// drawBackground stretches bg over the canvas grown by the oversize offset on
// every side, filters it and draws the visible window.
func drawBackground(dst *image.RGBA, bg image.Image, p Profile) {
	b := dst.Bounds()
	o := p.Oversize
	big := imaging.Resize(bg, b.Dx()+2*o, b.Dy()+2*o, imaging.Lanczos)
	big = gaussian(big, p.BlurSigma)
	big = filterColor(big, p.Brightness, p.Saturation)
	draw.Draw(dst, b, big, image.Pt(o, o), draw.Over)
}

// drawGradient lays the vertical black overlay over the whole canvas.
func drawGradient(dst *image.RGBA, p Profile) {
	b := dst.Bounds()
	h := b.Dy()
	for y := 0; y < h; y++ {
		t := 0.0
		if h > 1 {
			t = float64(y) / float64(h-1)
		}
		a := clampByte(p.gradientAlpha(t) * 255)
		if a == 0 {
			continue
		}
		row := image.Rect(b.Min.X, b.Min.Y+y, b.Max.X, b.Min.Y+y+1)
		draw.Draw(dst, row, image.NewUniform(color.NRGBA{A: a}), image.Point{}, draw.Over)
	}
}

// drawShadow paints the shadow of mask, a coverage image whose origin sits at
// at in canvas coordinates.
func drawShadow(dst *image.RGBA, mask image.Image, at image.Point, s Shadow) {
	if s.Color.A == 0 {
		return
	}
	sigma := s.Blur / 2
	pad := int(math.Ceil(sigma * 3))

	mb := mask.Bounds()
	padded := image.NewAlpha(image.Rect(0, 0, mb.Dx()+2*pad, mb.Dy()+2*pad))
	draw.Draw(padded, image.Rect(pad, pad, pad+mb.Dx(), pad+mb.Dy()), mask, mb.Min, draw.Src)
	blurred := gaussian(padded, sigma)

	r := padded.Bounds().Add(at).Add(image.Pt(s.OffsetX-pad, s.OffsetY-pad))
	draw.DrawMask(dst, r, image.NewUniform(s.Color), image.Point{}, blurred, image.Point{}, draw.Over)
}

// drawUserImage scales img into place and draws it over its drop shadow.
func drawUserImage(dst *image.RGBA, img image.Image, p Profile) {
	b := dst.Bounds()
	ib := img.Bounds()
	rect := FitUserImage(ib.Dx(), ib.Dy(), b.Dx(), b.Dy(), p)
	if rect.Empty() {
		return
	}

	scaled := imaging.Resize(img, rect.Dx(), rect.Dy(), imaging.Lanczos)
	drawShadow(dst, scaled, rect.Min, p.UserShadow)
	draw.Draw(dst, rect, scaled, image.Point{}, draw.Over)
}
