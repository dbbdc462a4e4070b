// Package ggrenderer renders host frames with the gg library: an animated
// test card for the synthetic timeline and scaled still images.
package ggrenderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/pixconv"
	"github.com/user/webmio/pkg/ports"
)

// Options configures the test card.
type Options struct {
	Width          int
	Height         int
	TicksPerSecond int64
	Format         media.PixelFormat

	Title      string
	Background color.Color
	Foreground color.Color
}

// Renderer implements ports.FrameSource with an animated test card.
type Renderer struct {
	opts Options
}

// New creates a new Renderer.
func New(opts Options) *Renderer {
	if opts.Background == nil {
		opts.Background = color.RGBA{R: 32, G: 32, B: 48, A: 255}
	}
	if opts.Foreground == nil {
		opts.Foreground = color.White
	}
	return &Renderer{opts: opts}
}

// RenderVideoFrame draws the card at tick: a sweeping bar, a pulsing disc
// and the timestamp.
func (r *Renderer) RenderVideoFrame(ctx context.Context, tick int64) (media.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return media.RawFrame{}, err
	}
	if r.opts.Width <= 0 || r.opts.Height <= 0 || r.opts.TicksPerSecond <= 0 {
		return media.RawFrame{}, fmt.Errorf("ggrenderer: invalid canvas %dx%d at %d ticks/s", r.opts.Width, r.opts.Height, r.opts.TicksPerSecond)
	}

	w, h := float64(r.opts.Width), float64(r.opts.Height)
	seconds := float64(tick) / float64(r.opts.TicksPerSecond)

	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	dc.SetColor(r.opts.Background)
	dc.Clear()

	phase := seconds/2 - math.Floor(seconds/2)
	dc.SetColor(hsv(phase*360, 0.6, 0.9))
	dc.DrawRectangle(phase*w-w/16, 0, w/8, h)
	dc.Fill()

	radius := math.Min(w, h) / 6 * (0.75 + 0.25*math.Sin(seconds*2*math.Pi))
	dc.SetColor(r.opts.Foreground)
	dc.DrawCircle(w/2, h/2, radius)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(r.opts.Foreground)
	if r.opts.Title != "" {
		dc.DrawStringAnchored(r.opts.Title, w/2, 16, 0.5, 0.5)
	}
	dc.DrawStringAnchored(formatTimestamp(seconds), w/2, h-16, 0.5, 0.5)

	return pack(dc.Image(), r.opts.Format)
}

// hsv converts a hue in degrees with saturation and value in 0..1.
func hsv(h, s, v float64) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	to8 := func(f float64) uint8 { return uint8(math.Round((f + m) * 255)) }
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

func formatTimestamp(seconds float64) string {
	ms := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}

func pack(img image.Image, format media.PixelFormat) (media.RawFrame, error) {
	switch format {
	case media.FormatBGRA8:
		return pixconv.PackBGRA8(img), nil
	case media.FormatBGRA16:
		return pixconv.PackBGRA16(img), nil
	case media.FormatI420:
		planar, err := pixconv.Convert(pixconv.PackBGRA8(img))
		if err != nil {
			return media.RawFrame{}, err
		}
		return pixconv.PlanarFrame(planar), nil
	default:
		return media.RawFrame{}, fmt.Errorf("%w: %s", pixconv.ErrUnsupportedFormat, format)
	}
}

// Still serves one image, scaled to the output size, for every tick.
type Still struct {
	frame media.RawFrame
}

// NewStill scales img to width x height once.
func NewStill(img image.Image, width, height int, format media.PixelFormat) (*Still, error) {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	frame, err := pack(dst, format)
	if err != nil {
		return nil, err
	}
	return &Still{frame: frame}, nil
}

// RenderVideoFrame returns the still frame.
func (s *Still) RenderVideoFrame(ctx context.Context, tick int64) (media.RawFrame, error) {
	return s.frame, ctx.Err()
}

// Ensure Renderer and Still implement ports.FrameSource
var (
	_ ports.FrameSource = (*Renderer)(nil)
	_ ports.FrameSource = (*Still)(nil)
)
