// SPDX-License-Identifier: MIT
package waveform

// Point is a position in pixels.
type Point struct {
	X, Y float64
}

// Segment is a quadratic curve from the previous point to To.
type Segment struct {
	Ctrl, To Point
}

// Path is the spectrum curve drawn over the waveform.
type Path struct {
	Start     Point
	Segments  []Segment
	LineWidth float64
}

// OverlayLineWidth is the stroke width of the spectrum curve.
const OverlayLineWidth = 3

// binHeight scales a byte magnitude so that 128 spans 1/2.5 of the canvas.
func binHeight(v uint8, height int) float64 {
	return float64(v) / 128 * float64(height) / 2.5
}

// Overlay lays the byte spectrum across the canvas width as a smoothed
// curve centred vertically. Each segment's control point sits half a bin
// back at the previous bin's full height, which exaggerates peaks.
func Overlay(bins []uint8, width, height int) Path {
	p := Path{LineWidth: OverlayLineWidth}
	if len(bins) == 0 || width <= 0 || height <= 0 {
		return p
	}
	mid := float64(height) / 2
	sw := float64(width) / float64(len(bins))

	p.Start = Point{X: 0, Y: mid - binHeight(bins[0], height)/2}
	p.Segments = make([]Segment, 0, len(bins)-1)
	for i := 1; i < len(bins); i++ {
		x := float64(i) * sw
		p.Segments = append(p.Segments, Segment{
			Ctrl: Point{X: x - sw/2, Y: mid - binHeight(bins[i-1], height)},
			To:   Point{X: x, Y: mid - binHeight(bins[i], height)/2},
		})
	}
	return p
}

// Points flattens the path into a polyline with steps points per segment.
func (p Path) Points(steps int) []Point {
	if steps < 1 {
		steps = 1
	}
	pts := make([]Point, 0, 1+len(p.Segments)*steps)
	pts = append(pts, p.Start)
	from := p.Start
	for _, seg := range p.Segments {
		for k := 1; k <= steps; k++ {
			t := float64(k) / float64(steps)
			u := 1 - t
			pts = append(pts, Point{
				X: u*u*from.X + 2*u*t*seg.Ctrl.X + t*t*seg.To.X,
				Y: u*u*from.Y + 2*u*t*seg.Ctrl.Y + t*t*seg.To.Y,
			})
		}
		from = seg.To
	}
	return pts
}
