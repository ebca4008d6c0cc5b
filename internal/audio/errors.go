// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoFile means nothing was selected, which is not a decoding failure.
var ErrNoFile = errors.New("no file selected")

var (
	errUnknownFormat = errors.New("unsupported or unrecognised audio format")
	errEmptyAudio    = errors.New("decoded audio contains no frames")
)

// DecodeError reports bytes that could not be turned into a PcmBuffer.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RenderError reports an offline render that could not produce a buffer.
type RenderError struct {
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return "render: " + e.Reason
	}
	return fmt.Sprintf("render: %s: %v", e.Reason, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
