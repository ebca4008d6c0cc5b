// SPDX-License-Identifier: MIT
package waveform

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Palette colours a rasterized frame.
type Palette struct {
	Background color.Color
	Wave       color.Color
	Selection  color.Color
	Marker     color.Color
	Spectrum   color.Color
}

// DefaultPalette matches the editor: a faint white wave on near black with
// the selection and markers in the accent colour.
var DefaultPalette = Palette{
	Background: color.RGBA{17, 17, 17, 255},
	Wave:       color.NRGBA{255, 255, 255, 64},
	Selection:  color.NRGBA{209, 58, 22, 38},
	Marker:     color.RGBA{209, 58, 22, 255},
	Spectrum:   color.RGBA{209, 58, 22, 255},
}

// Draw paints the frame onto img, which should be Width x Height.
func (f Frame) Draw(img *image.RGBA, pal Palette) {
	bounds := img.Bounds()
	draw.Draw(img, bounds, image.NewUniform(pal.Background), image.Point{}, draw.Src)

	wave := image.NewUniform(pal.Wave)
	for _, b := range f.Bars {
		r := image.Rect(b.X, int(math.Floor(b.Y)), b.X+1, int(math.Ceil(b.Y+b.H)))
		draw.Draw(img, r.Intersect(bounds), wave, image.Point{}, draw.Over)
	}

	fillSpan(img, f.Selection, pal.Selection)
	for _, m := range f.Markers {
		fillSpan(img, m, pal.Marker)
	}
}

func fillSpan(img *image.RGBA, s Span, c color.Color) {
	bounds := img.Bounds()
	r := image.Rect(int(math.Floor(s.X0)), bounds.Min.Y, int(math.Ceil(s.X1)), bounds.Max.Y)
	draw.Draw(img, r.Intersect(bounds), image.NewUniform(c), image.Point{}, draw.Over)
}

// Stroke draws the path onto img with a square pen of LineWidth.
func (p Path) Stroke(img *image.RGBA, c color.Color) {
	if len(p.Segments) == 0 {
		return
	}
	pen := image.NewUniform(c)
	half := max(p.LineWidth, 1) / 2
	bounds := img.Bounds()

	pts := p.Points(8)
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		n := int(math.Ceil(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))))
		for k := 0; k <= n; k++ {
			t := 0.0
			if n > 0 {
				t = float64(k) / float64(n)
			}
			x := a.X + (b.X-a.X)*t
			y := a.Y + (b.Y-a.Y)*t
			r := image.Rect(int(x-half), int(y-half), int(math.Ceil(x+half)), int(math.Ceil(y+half)))
			draw.Draw(img, r.Intersect(bounds), pen, image.Point{}, draw.Src)
		}
	}
}

// Image renders the frame and an optional spectrum overlay.
func Image(f Frame, overlay *Path, pal Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	f.Draw(img, pal)
	if overlay != nil {
		overlay.Stroke(img, pal.Spectrum)
	}
	return img
}

// WritePNG encodes Image(f, overlay, DefaultPalette) as PNG.
func WritePNG(w io.Writer, f Frame, overlay *Path) error {
	if f.Width <= 0 || f.Height <= 0 {
		return ErrNoCanvas
	}
	return errors.Wrap(png.Encode(w, Image(f, overlay, DefaultPalette)), "failed to encode png")
}
