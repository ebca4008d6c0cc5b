// SPDX-License-Identifier: MIT
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"forestric/internal/waveform"
)

// Each terminal cell holds two waveform pixels stacked vertically.
const cellPixels = 2

type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellWave
	cellSelected
	cellMarker
	cellSpectrum
	cellPlayhead
)

type cell struct {
	r    rune
	kind cellKind
}

// waveGrid rasterises a waveform.Frame into rows of terminal cells. The
// frame must have been rendered at cols x rows*cellPixels.
type waveGrid struct {
	cols, rows int
	cells      []cell
}

func newWaveGrid(f waveform.Frame, rows int) *waveGrid {
	g := &waveGrid{cols: f.Width, rows: rows, cells: make([]cell, f.Width*rows)}
	for i := range g.cells {
		g.cells[i] = cell{r: ' '}
	}

	for _, b := range f.Bars {
		if b.X < 0 || b.X >= g.cols {
			continue
		}
		kind := cellWave
		if x := float64(b.X) + 0.5; x >= f.Selection.X0 && x < f.Selection.X1 {
			kind = cellSelected
		}
		for row := 0; row < rows; row++ {
			top := covers(b, float64(row*cellPixels))
			bottom := covers(b, float64(row*cellPixels+1))
			var r rune
			switch {
			case top && bottom:
				r = '█'
			case top:
				r = '▀'
			case bottom:
				r = '▄'
			default:
				continue
			}
			g.cells[row*g.cols+b.X] = cell{r: r, kind: kind}
		}
	}

	for _, m := range f.Markers {
		x := int(m.X0 + m.Width()/2)
		if x >= g.cols {
			x = g.cols - 1
		}
		if x < 0 {
			continue
		}
		for row := 0; row < rows; row++ {
			g.cells[row*g.cols+x] = cell{r: '┃', kind: cellMarker}
		}
	}
	return g
}

// covers reports whether bar b reaches the centre of pixel row y.
func covers(b waveform.Bar, y float64) bool {
	c := y + 0.5
	return c >= b.Y && c <= b.Y+b.H
}

// plot draws the spectrum overlay points on top of the waveform.
func (g *waveGrid) plot(points []waveform.Point) {
	for _, p := range points {
		x, row := int(p.X), int(p.Y)/cellPixels
		if x < 0 || x >= g.cols || row < 0 || row >= g.rows {
			continue
		}
		c := &g.cells[row*g.cols+x]
		if c.kind == cellMarker {
			continue
		}
		*c = cell{r: '•', kind: cellSpectrum}
	}
}

// playhead marks column x over the full height.
func (g *waveGrid) playhead(x int) {
	if x < 0 || x >= g.cols {
		return
	}
	for row := 0; row < g.rows; row++ {
		g.cells[row*g.cols+x] = cell{r: '│', kind: cellPlayhead}
	}
}

func (k cellKind) style() lipgloss.Style {
	switch k {
	case cellWave:
		return waveStyle
	case cellSelected:
		return selectedStyle
	case cellMarker:
		return markerStyle
	case cellSpectrum:
		return spectrumStyle
	case cellPlayhead:
		return playheadStyle
	}
	return lipgloss.NewStyle()
}

// String renders the grid, styling runs of equal kind together.
func (g *waveGrid) String() string {
	var sb strings.Builder
	var run strings.Builder
	for row := 0; row < g.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		line := g.cells[row*g.cols : (row+1)*g.cols]
		for i := 0; i < len(line); {
			kind := line[i].kind
			run.Reset()
			for ; i < len(line) && line[i].kind == kind; i++ {
				run.WriteRune(line[i].r)
			}
			if kind == cellEmpty {
				sb.WriteString(run.String())
				continue
			}
			sb.WriteString(kind.style().Render(run.String()))
		}
	}
	return sb.String()
}

// plain renders the grid without styling.
func (g *waveGrid) plain() string {
	var sb strings.Builder
	for row := 0; row < g.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for _, c := range g.cells[row*g.cols : (row+1)*g.cols] {
			sb.WriteRune(c.r)
		}
	}
	return sb.String()
}
