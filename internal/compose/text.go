package compose

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"strings"

	"ytthumb/internal/style"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FontSet holds the faces captions are drawn with.
type FontSet struct {
	regular *opentype.Font
	bold    *opentype.Font
	italic  *opentype.Font
}

// LoadFonts returns the embedded Go font family, or when path is set, a set
// that draws every weight with the font file at path.
func LoadFonts(path string) (*FontSet, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", path, err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", path, err)
		}
		return &FontSet{regular: f, bold: f, italic: f}, nil
	}

	fs := &FontSet{}
	for _, item := range []struct {
		dst  **opentype.Font
		data []byte
	}{
		{&fs.regular, goregular.TTF},
		{&fs.bold, gobold.TTF},
		{&fs.italic, goitalic.TTF},
	} {
		f, err := opentype.Parse(item.data)
		if err != nil {
			return nil, fmt.Errorf("parse embedded font: %w", err)
		}
		*item.dst = f
	}
	return fs, nil
}

// pick chooses the face for attrs.
func (fs *FontSet) pick(attrs style.Attributes) *opentype.Font {
	if attrs.Schema == style.SchemaZone {
		switch attrs.Zone.FontStyle {
		case style.FontStyleBold:
			return fs.bold
		case style.FontStyleItalic:
			return fs.italic
		default:
			// no light face in the Go family; thin draws regular
			return fs.regular
		}
	}
	if style.IsBold(attrs.Percent.FontWeight) {
		return fs.bold
	}
	return fs.regular
}

// textLayer is a rasterized caption: a coverage mask the size of the canvas
// and the pixel bounds that hold glyphs.
type textLayer struct {
	mask   *image.Alpha
	bounds image.Rectangle
	width  float64
}

// layoutText rasterizes caption so that its em box is vertically centered on
// the origin's y, matching a canvas "middle" baseline.
func layoutText(fs *FontSet, attrs style.Attributes, caption string, canvas image.Rectangle) (*textLayer, error) {
	caption = strings.Join(strings.Fields(caption), " ")

	size := FontSize(attrs, canvas.Dy())
	face, err := opentype.NewFace(fs.pick(attrs), &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()

	layer := &textLayer{mask: image.NewAlpha(canvas)}
	if caption == "" {
		return layer, nil
	}

	advance := font.MeasureString(face, caption)
	layer.width = fixedToFloat(advance)

	x, y := TextOrigin(attrs, canvas.Dx(), canvas.Dy(), layer.width)
	m := face.Metrics()
	baseline := y + (fixedToFloat(m.Ascent)-fixedToFloat(m.Descent))/2

	dot := fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(baseline)}
	d := &font.Drawer{Dst: layer.mask, Src: image.Opaque, Face: face, Dot: dot}
	gb, _ := d.BoundString(caption)
	d.DrawString(caption)

	layer.bounds = image.Rect(
		gb.Min.X.Floor()-1, gb.Min.Y.Floor()-1,
		gb.Max.X.Ceil()+1, gb.Max.Y.Ceil()+1,
	).Intersect(canvas)
	return layer, nil
}

// drawStroke paints the outline as the glyph mask grown by half the width.
func drawStroke(dst *image.RGBA, layer *textLayer, s Stroke) {
	if layer.bounds.Empty() || s.Width <= 0 {
		return
	}
	outline := dilate(layer.mask, layer.bounds, s.Width/2)
	draw.DrawMask(dst, outline.Bounds(), image.NewUniform(s.Color), image.Point{}, outline, outline.Bounds().Min, draw.Over)
}

// drawFill paints the caption over its drop shadow.
func drawFill(dst *image.RGBA, layer *textLayer, fill color.NRGBA, shadow Shadow) {
	if layer.bounds.Empty() {
		return
	}
	glyphs := layer.mask.SubImage(layer.bounds)
	drawShadow(dst, glyphs, layer.bounds.Min, shadow)
	draw.DrawMask(dst, layer.bounds, image.NewUniform(fill), image.Point{}, layer.mask, layer.bounds.Min, draw.Over)
}

// dilate returns the max of src over a disc of radius r, for the pixels
// within r of area.
func dilate(src *image.Alpha, area image.Rectangle, r float64) *image.Alpha {
	ri := int(math.Ceil(r))
	out := image.NewAlpha(area.Inset(-ri).Intersect(src.Bounds()))

	type offset struct{ dx, dy int }
	var disc []offset
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) <= r*r {
				disc = append(disc, offset{dx, dy})
			}
		}
	}

	ob := out.Bounds()
	for y := ob.Min.Y; y < ob.Max.Y; y++ {
		for x := ob.Min.X; x < ob.Max.X; x++ {
			var m uint8
			for _, o := range disc {
				px, py := x+o.dx, y+o.dy
				if !(image.Point{X: px, Y: py}.In(area)) {
					continue
				}
				if a := src.Pix[src.PixOffset(px, py)]; a > m {
					m = a
					if m == 0xFF {
						break
					}
				}
			}
			out.Pix[out.PixOffset(x, y)] = m
		}
	}
	return out
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
