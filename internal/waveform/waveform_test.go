// SPDX-License-Identifier: MIT
package waveform

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"testing"

	"forestric/internal/crop"
	"forestric/internal/pcm"
)

func TestRender_Bars(t *testing.T) {
	t.Parallel()

	// Two columns of two samples, one quiet and one loud.
	buf, _ := pcm.FromChannels(4, []float32{-0.25, 0.25, -1, 1})
	f, err := Render(buf, crop.Range{Start: 0, End: 1}, 2, 100)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		bar  Bar
		y, h float64
	}{
		{f.Bars[0], 37.5, 25},
		{f.Bars[1], 0, 100},
	}
	for i, tt := range tests {
		if tt.bar.X != i || math.Abs(tt.bar.Y-tt.y) > 1e-9 || math.Abs(tt.bar.H-tt.h) > 1e-9 {
			t.Errorf("bar %d = %+v, want X=%d Y=%v H=%v", i, tt.bar, i, tt.y, tt.h)
		}
	}
}

func TestRender_EmptyColumnsAreSilence(t *testing.T) {
	t.Parallel()

	// 5 samples over 4 columns: step 2, so the last column has no data.
	buf, _ := pcm.FromChannels(5, []float32{0.5, 0.5, 0.5, 0.5, 0.5})
	f, err := Render(buf, crop.Range{Start: 0, End: 1}, 4, 10)
	if err != nil {
		t.Fatal(err)
	}
	last := f.Bars[3]
	if last.Y != 5 || last.H != 1 {
		t.Errorf("empty column = %+v, want a 1 px bar at the centre", last)
	}
	flat := f.Bars[0]
	if flat.H != 1 {
		t.Errorf("a flat column keeps the minimum height, got %v", flat.H)
	}
}

func TestRender_SelectionAndMarkers(t *testing.T) {
	t.Parallel()

	buf, _ := pcm.New(1, 1000, 100) // 10 s
	f, err := Render(buf, crop.Range{Start: 2.5, End: 7.5}, 200, 50)
	if err != nil {
		t.Fatal(err)
	}
	if f.Selection != (Span{X0: 50, X1: 150}) {
		t.Errorf("selection = %+v", f.Selection)
	}
	if f.Markers[0] != (Span{X0: 48, X1: 52}) || f.Markers[1] != (Span{X0: 148, X1: 152}) {
		t.Errorf("markers = %+v", f.Markers)
	}
	if f.Markers[0].Width() != MarkerWidth {
		t.Errorf("marker width = %v", f.Markers[0].Width())
	}
}

func TestFrame_SelectKeepsBars(t *testing.T) {
	t.Parallel()

	buf, _ := pcm.New(1, 1000, 100)
	f, err := Render(buf, crop.Range{Start: 0, End: 10}, 100, 20)
	if err != nil {
		t.Fatal(err)
	}
	bars := f.Bars
	f.Select(crop.Range{Start: 1, End: 2}, 10)
	if f.Selection != (Span{X0: 10, X1: 20}) {
		t.Errorf("selection = %+v", f.Selection)
	}
	if &f.Bars[0] != &bars[0] {
		t.Error("Select replaced the bars")
	}

	f.Select(crop.Range{Start: 1, End: 2}, 0)
	if f.Selection != (Span{}) || f.Markers != ([2]Span{}) {
		t.Errorf("zero duration kept selection %+v", f.Selection)
	}
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	buf, _ := pcm.New(1, 10, 10)
	if _, err := Render(nil, crop.Range{}, 10, 10); !errors.Is(err, ErrNoBuffer) {
		t.Errorf("nil buffer: %v", err)
	}
	if _, err := Render(buf, crop.Range{Start: 0, End: 1}, 0, 10); !errors.Is(err, ErrNoCanvas) {
		t.Errorf("zero width: %v", err)
	}
}

func TestFractionAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		x, width, want float64
	}{
		{50, 200, 0.25},
		{-10, 200, 0},
		{250, 200, 1},
		{10, 0, 0},
		{math.NaN(), 100, 0},
	}
	for _, tt := range tests {
		if got := FractionAt(tt.x, tt.width); got != tt.want {
			t.Errorf("FractionAt(%v, %v) = %v, want %v", tt.x, tt.width, got, tt.want)
		}
	}
}

func TestOverlay(t *testing.T) {
	t.Parallel()

	p := Overlay([]uint8{0, 128, 64, 0}, 400, 250)
	if len(p.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(p.Segments))
	}
	if p.Start != (Point{X: 0, Y: 125}) {
		t.Errorf("start = %+v, want silence at the vertical centre", p.Start)
	}
	// 128 spans height/2.5 = 100 px; the point sits at half of that.
	seg := p.Segments[0]
	if seg.To != (Point{X: 100, Y: 75}) {
		t.Errorf("first point = %+v", seg.To)
	}
	if seg.Ctrl.X != 50 || seg.Ctrl.Y != 125 {
		t.Errorf("first control = %+v", seg.Ctrl)
	}
	if p.Segments[1].Ctrl.Y != 25 {
		t.Errorf("second control y = %v, want the previous bin at full height", p.Segments[1].Ctrl.Y)
	}

	if empty := Overlay(nil, 100, 100); len(empty.Segments) != 0 {
		t.Error("no bins should give an empty path")
	}
	pts := p.Points(4)
	if len(pts) != 13 || pts[len(pts)-1] != p.Segments[2].To {
		t.Errorf("flattened %d points ending at %+v", len(pts), pts[len(pts)-1])
	}
}

func TestWritePNG(t *testing.T) {
	t.Parallel()

	buf, _ := pcm.FromChannels(100, make([]float32, 300))
	f, err := Render(buf, crop.Range{Start: 1, End: 2}, 120, 40)
	if err != nil {
		t.Fatal(err)
	}
	overlay := Overlay([]uint8{10, 200, 90, 30}, f.Width, f.Height)

	var out bytes.Buffer
	if err := WritePNG(&out, f, &overlay); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&out)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 40 {
		t.Errorf("bounds = %v", b)
	}
	// Marker at x=40 is opaque accent colour.
	r, g, bl, _ := img.At(40, 5).RGBA()
	if r>>8 != 209 || g>>8 != 58 || bl>>8 != 22 {
		t.Errorf("marker pixel = %d,%d,%d", r>>8, g>>8, bl>>8)
	}
}

func BenchmarkRender(b *testing.B) {
	buf, _ := pcm.New(2, 44100*180, 44100)
	rng := crop.Range{Start: 10, End: 20}

	for b.Loop() {
		if _, err := Render(buf, rng, 1200, 200); err != nil {
			b.Fatal(err)
		}
	}
}
