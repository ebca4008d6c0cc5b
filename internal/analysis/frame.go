// SPDX-License-Identifier: MIT
package analysis

import "time"

// SpectrumFrame is one display-rate snapshot of a playing preview.
type SpectrumFrame struct {
	Seq      uint32    `json:"seq"`
	Time     time.Time `json:"time"`
	Position float64   `json:"position"` // seconds into the source track
	Peak     float32   `json:"peak"`
	Bins     []uint8   `json:"bins"`
	Bands    []float64 `json:"bands,omitempty"`
}
