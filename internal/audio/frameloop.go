// SPDX-License-Identifier: MIT
package audio

import (
	"sync"
	"time"

	applog "forestric/internal/log"
)

// DefaultFrameInterval is the display cadence, about 60 Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameLoop calls tick at a fixed interval on its own goroutine until
// stopped. Start and Stop are both idempotent.
type FrameLoop struct {
	interval time.Duration
	tick     func(now time.Time)

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewFrameLoop falls back to DefaultFrameInterval for a non-positive interval.
func NewFrameLoop(interval time.Duration, tick func(now time.Time)) *FrameLoop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameLoop{interval: interval, tick: tick}
}

func (l *FrameLoop) Start() {
	l.mu.Lock()
	if l.ticker != nil {
		l.mu.Unlock()
		return
	}
	l.ticker = time.NewTicker(l.interval)
	l.doneChan = make(chan struct{})
	l.stopOnce = sync.Once{}

	ticker := l.ticker
	doneChan := l.doneChan
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			select {
			case now := <-ticker.C:
				l.tick(now)
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine and waits for it to exit. It must not be called
// from inside tick.
func (l *FrameLoop) Stop() {
	l.mu.Lock()
	if l.ticker == nil {
		l.mu.Unlock()
		return
	}
	l.stopOnce.Do(func() {
		close(l.doneChan)
		l.ticker.Stop()
		l.ticker = nil
	})
	l.mu.Unlock()

	l.wg.Wait()
	applog.Debugf("Audio: frame loop stopped")
}
