// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"forestric/internal/formats"
	applog "forestric/internal/log"
	"forestric/internal/pcm"
)

// Decode turns raw file bytes into a PcmBuffer using the shared context.
func Decode(ctx context.Context, name string, data []byte) (*pcm.Buffer, error) {
	return AcquireContext().DecodeAudioData(ctx, name, data)
}

// DecodeFile reads path and decodes it. An empty path is ErrNoFile.
func DecodeFile(ctx context.Context, path string) (*pcm.Buffer, error) {
	if path == "" {
		return nil, ErrNoFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Name: filepath.Base(path), Err: err}
	}
	return Decode(ctx, filepath.Base(path), data)
}

// DecodeAudioData sniffs the container, decodes the whole stream and
// validates the result. The name is only used for extension fallback and
// error messages.
func (c *Context) DecodeAudioData(ctx context.Context, name string, data []byte) (*pcm.Buffer, error) {
	if name == "" && len(data) == 0 {
		return nil, ErrNoFile
	}
	if len(data) == 0 {
		return nil, &DecodeError{Name: name, Err: errEmptyAudio}
	}
	if err := ctx.Err(); err != nil {
		return nil, &DecodeError{Name: name, Err: err}
	}

	format := formats.Sniff(name, data)
	dec, ok := c.registry.Get(format)
	if !ok {
		return nil, &DecodeError{Name: name, Err: errUnknownFormat}
	}

	buf, err := decodeWith(dec, data)
	if err != nil {
		return nil, &DecodeError{Name: name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &DecodeError{Name: name, Err: err}
	}

	applog.Infof("Audio: decoded %s as %s (%d ch, %d Hz, %.2fs)",
		name, format, buf.NumChannels(), buf.SampleRate, buf.Duration())
	return buf, nil
}

// decodeWith converts codec panics into errors; several of the pure-Go
// decoders index past the end of malformed frames.
func decodeWith(dec formats.Decoder, data []byte) (buf *pcm.Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()

	src, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	buf, err = pcm.ReadAll(src)
	if err != nil {
		return nil, err
	}
	if buf.Frames == 0 {
		return nil, errEmptyAudio
	}
	if buf.SampleRate <= 0 {
		return nil, errors.WithStack(pcm.ErrBadSampleRate)
	}
	return buf, nil
}
