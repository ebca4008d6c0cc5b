// SPDX-License-Identifier: MIT
package mp3enc

import (
	"bytes"

	"github.com/braheezy/shine-mp3/pkg/mp3"
)

// shineBackend drives the pure-Go port of the shine fixed-point encoder,
// which always produces 128 kbps CBR.
type shineBackend struct {
	enc *mp3.Encoder
}

// NewShineBackend is the default BackendFactory.
func NewShineBackend(cfg Config) (Backend, error) {
	return &shineBackend{enc: mp3.NewEncoder(cfg.SampleRate, cfg.Channels)}, nil
}

func (b *shineBackend) Encode(w *bytes.Buffer, interleaved []int16) error {
	return b.enc.Write(w, interleaved)
}
