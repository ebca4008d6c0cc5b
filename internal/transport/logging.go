// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"forestric/internal/analysis"
	applog "forestric/internal/log"
)

// LoggingTransport writes a one-line summary of every frame at debug level.
type LoggingTransport struct {
	sent atomic.Uint64
}

func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

func (lt *LoggingTransport) Send(data any) error {
	lt.sent.Add(1)
	switch v := data.(type) {
	case analysis.SpectrumFrame:
		applog.Debugf("Transport: frame %d at %.3fs peak %.3f, %d bins, loudest bin %d",
			v.Seq, v.Position, v.Peak, len(v.Bins), loudest(v.Bins))
	default:
		applog.Debugf("Transport: %T %+v", data, data)
	}
	return nil
}

// Sent returns the number of messages received.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

func (lt *LoggingTransport) Close() error {
	applog.Debugf("Transport: LoggingTransport closed after %d messages", lt.sent.Load())
	return nil
}

func loudest(bins []uint8) int {
	idx := 0
	for i, v := range bins {
		if v > bins[idx] {
			idx = i
		}
	}
	return idx
}

var _ Transport = (*LoggingTransport)(nil)
