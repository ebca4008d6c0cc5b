// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// paramTarget is published atomically so the UI thread can retarget a
// parameter while the render thread reads it.
type paramTarget struct {
	value float64
	tau   float64 // seconds; 0 jumps straight to value
}

// Param is an automatable scalar such as gain. Writers call SetValue or
// SetTargetAtTime from any goroutine; the owning render loop advances it
// one sample at a time.
type Param struct {
	target     atomic.Pointer[paramTarget]
	sampleRate float64

	// Render-thread state.
	current float64
	seen    *paramTarget
	coef    float64
}

// NewParam returns a parameter resting at v.
func NewParam(v float64, sampleRate int) *Param {
	p := &Param{sampleRate: float64(sampleRate), current: v}
	p.target.Store(&paramTarget{value: v})
	return p
}

// SetValue jumps to v at the next rendered sample.
func (p *Param) SetValue(v float64) {
	p.target.Store(&paramTarget{value: v})
}

// SetTargetAtTime starts an exponential approach to v with time constant
// tau seconds, beginning at the next rendered sample.
func (p *Param) SetTargetAtTime(v, tau float64) {
	if tau <= 0 || math.IsNaN(tau) {
		p.SetValue(v)
		return
	}
	p.target.Store(&paramTarget{value: v, tau: tau})
}

// Target returns the value the parameter is heading to.
func (p *Param) Target() float64 {
	return p.target.Load().value
}

// beginBlock picks up a new target, if any, before rendering a block.
func (p *Param) beginBlock() {
	t := p.target.Load()
	if t == p.seen {
		return
	}
	p.seen = t
	if t.tau == 0 {
		p.current = t.value
		p.coef = 0
		return
	}
	p.coef = 1 - math.Exp(-1/(t.tau*p.sampleRate))
}

// next advances one sample and returns the value to apply.
func (p *Param) next() float64 {
	if p.coef != 0 {
		p.current += (p.seen.value - p.current) * p.coef
	}
	return p.current
}
