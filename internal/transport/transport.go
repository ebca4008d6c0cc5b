// SPDX-License-Identifier: MIT

// Package transport publishes spectrum frames of a playing preview to
// external consumers.
package transport

import (
	"sync"

	"github.com/pkg/errors"
)

// Transport sends processed data or events. Implementations must be safe for
// concurrent use and must not block the caller for long; the frame loop
// calls Send at display rate.
type Transport interface {
	Send(data any) error
	Close() error
}

// ErrUnsupportedPayload is returned by transports that only understand
// specific payload types.
var ErrUnsupportedPayload = errors.New("unsupported payload type")

// Fanout sends every message to all of its transports.
type Fanout struct {
	mu         sync.Mutex
	transports []Transport
}

// NewFanout drops nil transports.
func NewFanout(ts ...Transport) *Fanout {
	f := &Fanout{}
	for _, t := range ts {
		if t != nil {
			f.transports = append(f.transports, t)
		}
	}
	return f
}

// Len returns the number of transports.
func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

// Send delivers data to every transport and returns the first error.
func (f *Fanout) Send(data any) error {
	f.mu.Lock()
	ts := f.transports
	f.mu.Unlock()

	var first error
	for _, t := range ts {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every transport and returns the first error.
func (f *Fanout) Close() error {
	f.mu.Lock()
	ts := f.transports
	f.transports = nil
	f.mu.Unlock()

	var first error
	for _, t := range ts {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Transport = (*Fanout)(nil)
