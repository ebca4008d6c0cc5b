// SPDX-License-Identifier: MIT
package input

import (
	"forestric/internal/crop"
	"forestric/internal/waveform"
)

// CropDrag moves the crop edge nearest to the press and keeps moving that
// same edge until release, even if the pointer crosses the other edge.
type CropDrag struct {
	model    func() *crop.Model
	onChange func(crop.Range)
	edge     crop.Edge
	active   bool
}

// NewCropDrag edits whatever model returns at press time; a nil model
// refuses the press. onChange runs after every edit.
func NewCropDrag(model func() *crop.Model, onChange func(crop.Range)) *CropDrag {
	return &CropDrag{model: model, onChange: onChange}
}

// Edge returns the edge being dragged and whether a drag is active.
func (d *CropDrag) Edge() (crop.Edge, bool) { return d.edge, d.active }

func (d *CropDrag) Press(ev Event, r Region) bool {
	m := d.model()
	if m == nil {
		return false
	}
	f := waveform.FractionAt(ev.X-r.X0, r.Width())
	d.edge = m.PickNearestEdge(f * m.Duration())
	d.active = true
	d.apply(m, ev, r)
	return true
}

func (d *CropDrag) Move(ev Event, r Region) {
	if m := d.model(); m != nil && d.active {
		d.apply(m, ev, r)
	}
}

// Release ends the drag. The edge stays where the last press or move put
// it, whatever column the release reports.
func (d *CropDrag) Release(ev Event, r Region) {
	d.active = false
}

func (d *CropDrag) apply(m *crop.Model, ev Event, r Region) {
	m.SetFromPointer(waveform.FractionAt(ev.X-r.X0, r.Width()), d.edge)
	if d.onChange != nil {
		d.onChange(m.Range())
	}
}
