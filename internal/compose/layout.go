package compose

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"ytthumb/internal/style"
)

// Output canvas size.
const (
	Width  = 1280
	Height = 720
)

const (
	zonePadding = 40
	zoneTopY    = 80
	zoneBottomY = 60 // distance from the bottom edge
)

// zone schema sizes in px at a 720px canvas
var sizeBuckets = map[style.SizeBucket]float64{
	style.SizeSmall:  36.0 / 720,
	style.SizeMedium: 48.0 / 720,
	style.SizeLarge:  64.0 / 720,
	style.SizeXLarge: 80.0 / 720,
}

// FontSize returns the caption size in px for a canvas of height h.
func FontSize(attrs style.Attributes, h int) float64 {
	switch attrs.Schema {
	case style.SchemaZone:
		frac, ok := sizeBuckets[attrs.Zone.FontSize]
		if !ok {
			frac = sizeBuckets[style.SizeLarge]
		}
		return math.Round(frac * float64(h))
	default:
		return math.Round(attrs.Percent.FontSizePercent / 100 * float64(h))
	}
}

// TextOrigin returns the left edge and the vertical center of a caption of
// width tw on a w×h canvas.
func TextOrigin(attrs style.Attributes, w, h int, tw float64) (x, y float64) {
	if attrs.Schema == style.SchemaZone {
		return zoneOrigin(attrs.Zone.TextPosition, w, h, tw)
	}

	p := attrs.Percent
	ax := p.XPercent / 100 * float64(w)
	y = p.YPercent / 100 * float64(h)
	switch p.Alignment {
	case style.AlignLeft:
		x = ax
	case style.AlignRight:
		x = ax - tw
	default:
		x = ax - tw/2
	}
	return x, y
}

func zoneOrigin(zone style.Zone, w, h int, tw float64) (x, y float64) {
	left := float64(zonePadding)
	center := float64(w)/2 - tw/2
	right := float64(w) - tw - zonePadding
	top := float64(zoneTopY)
	middle := float64(h) / 2
	bottom := float64(h - zoneBottomY)

	switch zone {
	case style.ZoneTopLeft:
		return left, top
	case style.ZoneTopCenter:
		return center, top
	case style.ZoneTopRight:
		return right, top
	case style.ZoneMiddleLeft:
		return left, middle
	case style.ZoneCenter:
		return center, middle
	case style.ZoneMiddleRight:
		return right, middle
	case style.ZoneBottomLeft:
		return left, bottom
	case style.ZoneBottomRight:
		return right, bottom
	default:
		return center, bottom
	}
}

// FitUserImage scales an iw×ih image into the profile's share of a w×h
// canvas, keeping its aspect ratio, anchored bottom-center.
func FitUserImage(iw, ih, w, h int, p Profile) image.Rectangle {
	if iw <= 0 || ih <= 0 {
		return image.Rectangle{}
	}
	aspect := float64(iw) / float64(ih)
	imgH := float64(h) * p.UserMaxHeight
	imgW := imgH * aspect
	if maxW := float64(w) * p.UserMaxWidth; imgW > maxW {
		imgW = maxW
		imgH = imgW / aspect
	}

	rw := int(math.Round(imgW))
	rh := int(math.Round(imgH))
	if rw < 1 {
		rw = 1
	}
	if rh < 1 {
		rh = 1
	}
	x := int(math.Round((float64(w) - imgW) / 2))
	return image.Rect(x, h-rh, x+rw, h)
}

// StrokeFor returns the outline for attrs, or nil when none is drawn.
func StrokeFor(attrs style.Attributes, p Profile, fontSize float64) (*Stroke, error) {
	if p.FixedStroke != nil {
		s := *p.FixedStroke
		return &s, nil
	}
	if attrs.Percent == nil || attrs.Percent.StrokeColor == nil {
		return nil, nil
	}
	c, err := ParseHexColor(*attrs.Percent.StrokeColor)
	if err != nil {
		return nil, err
	}
	return &Stroke{Color: c, Width: math.Max(fontSize*0.08, 4)}, nil
}

// TextColor returns the fill color of attrs.
func TextColor(attrs style.Attributes) (color.NRGBA, error) {
	if attrs.Schema == style.SchemaZone {
		return ParseHexColor(attrs.Zone.TextColor)
	}
	return ParseHexColor(attrs.Percent.TextColor)
}

// ParseHexColor parses #RRGGBB or #RGB.
func ParseHexColor(s string) (color.NRGBA, error) {
	canon, ok := style.CanonicalColor(s)
	if !ok {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(canon[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}
