// Package compose renders remade thumbnails: a blurred copy of the original
// thumbnail as background, an optional user image and a styled caption.
package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"ytthumb/internal/style"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyImage is returned when an image source yields no bytes.
	ErrEmptyImage = errors.New("compose: empty image")
	// ErrImageTooLarge is returned for inputs whose dimensions exceed the
	// pixel budget. Nothing is decoded past the header.
	ErrImageTooLarge = errors.New("compose: image dimensions too large")
)

// Pixel budget of an input image.
const (
	MaxImageSide   = 8192
	MaxImagePixels = 40_000_000
)

// CheckDimensions reads only the image header and rejects images over the
// pixel budget.
func CheckDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if cfg.Width > MaxImageSide || cfg.Height > MaxImageSide || cfg.Width*cfg.Height > MaxImagePixels {
		return fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return nil
}

// Source produces the encoded bytes of an input image.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// Bytes is a Source over bytes already in memory.
type Bytes []byte

func (b Bytes) Load(context.Context) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrEmptyImage
	}
	return b, nil
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]byte, error)

func (f SourceFunc) Load(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Request is everything one render needs. UserImage may be nil.
type Request struct {
	Background Source
	UserImage  Source
	Caption    string
	Style      style.Attributes
}

// Result is a finished render.
type Result struct {
	PNG   []byte
	Steps []StepResult
}

// Compositor renders Requests into 1280×720 PNGs. It holds no per-render
// state and is safe for concurrent use.
type Compositor struct {
	fonts  *FontSet
	logger *zap.Logger
}

// NewCompositor creates a compositor drawing captions with fonts.
func NewCompositor(fonts *FontSet, logger *zap.Logger) *Compositor {
	return &Compositor{fonts: fonts, logger: logger}
}

type renderState struct {
	req     Request
	profile Profile
	canvas  *image.RGBA

	background image.Image
	user       image.Image
	text       *textLayer
	out        bytes.Buffer
}

func (c *Compositor) pipeline() *Pipeline[*renderState] {
	return NewPipeline[*renderState]("render", c.logger).
		Add(StepLoadBackground, func(ctx context.Context, st *renderState) error {
			img, err := loadImage(ctx, st.req.Background)
			if err != nil {
				return fmt.Errorf("background: %w", err)
			}
			st.background = img
			return nil
		}).
		Add(StepDrawBackground, func(_ context.Context, st *renderState) error {
			drawBackground(st.canvas, st.background, st.profile)
			return nil
		}).
		Add(StepDrawGradient, func(_ context.Context, st *renderState) error {
			drawGradient(st.canvas, st.profile)
			return nil
		}).
		Add(StepLoadUserImage, func(ctx context.Context, st *renderState) error {
			if st.req.UserImage == nil {
				return nil
			}
			img, err := loadImage(ctx, st.req.UserImage)
			if err != nil {
				return fmt.Errorf("user image: %w", err)
			}
			st.user = img
			return nil
		}).
		Add(StepDrawUserImage, func(_ context.Context, st *renderState) error {
			if st.user != nil {
				drawUserImage(st.canvas, st.user, st.profile)
			}
			return nil
		}).
		Add(StepDrawTextStroke, func(_ context.Context, st *renderState) error {
			layer, err := layoutText(c.fonts, st.req.Style, st.req.Caption, st.canvas.Bounds())
			if err != nil {
				return err
			}
			st.text = layer

			stroke, err := StrokeFor(st.req.Style, st.profile, FontSize(st.req.Style, st.canvas.Bounds().Dy()))
			if err != nil {
				return err
			}
			if stroke != nil {
				drawStroke(st.canvas, layer, *stroke)
			}
			return nil
		}).
		Add(StepDrawTextFill, func(_ context.Context, st *renderState) error {
			fill, err := TextColor(st.req.Style)
			if err != nil {
				return err
			}
			drawFill(st.canvas, st.text, fill, st.profile.TextShadow)
			return nil
		}).
		Add(StepEncodePNG, func(_ context.Context, st *renderState) error {
			return imaging.Encode(&st.out, st.canvas, imaging.PNG)
		})
}

// Render draws req. Equal requests produce byte-identical PNGs. Any failure
// returns a *GenerationError and no image.
func (c *Compositor) Render(ctx context.Context, req Request) (*Result, error) {
	if !req.Style.Valid() {
		req.Style = style.Default(req.Style.Schema)
	}

	st := &renderState{
		req:     req,
		profile: ProfileFor(req.Style.Schema),
		canvas:  image.NewRGBA(image.Rect(0, 0, Width, Height)),
	}

	steps, err := c.pipeline().Run(ctx, st)
	if err != nil {
		return nil, err
	}
	return &Result{PNG: st.out.Bytes(), Steps: steps}, nil
}

func loadImage(ctx context.Context, src Source) (image.Image, error) {
	if src == nil {
		return nil, ErrEmptyImage
	}
	data, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if err := CheckDimensions(data); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}
