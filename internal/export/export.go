// SPDX-License-Identifier: MIT

// Package export turns a crop of a loaded track into a finished MP3 file:
// offline render, 16-bit quantization, block-wise streaming encode and
// assembly.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"forestric/internal/audio"
	"forestric/internal/crop"
	applog "forestric/internal/log"
	"forestric/internal/mp3enc"
	"forestric/internal/pcm"
)

// BlockSize is the number of samples per channel fed to the encoder per call.
const BlockSize = 1152

// Suffix is appended to the original base name of every export.
const Suffix = "_forestric.mp3"

// ErrBusy is returned when an export is requested while one is running.
var ErrBusy = errors.New("an export is already in progress")

// EncodeError reports a failed export. No partial output accompanies it.
type EncodeError struct {
	Stage string // "render", "encode" or "flush"
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Encoder is the streaming encoder protocol the pipeline drives.
type Encoder interface {
	PushBlock(left, right []int16) ([]byte, error)
	Finish() ([]byte, error)
}

// EncoderFactory opens an encoder for the rendered buffer's format.
type EncoderFactory func(sampleRate, channels int) (Encoder, error)

// MP3Encoder is the default EncoderFactory.
func MP3Encoder(sampleRate, channels int) (Encoder, error) {
	stream, err := mp3enc.New(mp3enc.Config{SampleRate: sampleRate, Channels: channels, Bitrate: mp3enc.Bitrate})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// File is a finished export held in memory.
type File struct {
	Name string
	Data []byte
}

// Save writes the file into dir and returns its path.
func (f File) Save(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", dir)
	}
	path := filepath.Join(dir, f.Name)
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	applog.Infof("Export: saved %s (%d bytes)", path, len(f.Data))
	return path, nil
}

// OutputName strips the last extension from the original file name and
// appends Suffix.
func OutputName(original string) string {
	base := filepath.Base(original)
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		base = "untitled"
	}
	return base + Suffix
}

// Encode quantizes buf and streams it through an encoder from newEncoder,
// or the MP3 encoder when newEncoder is nil. Mono input is fed to both
// encoder channels. Chunks are assembled in emission order with the flush
// output last.
func Encode(ctx context.Context, buf *pcm.Buffer, originalName string, newEncoder EncoderFactory) (File, error) {
	if buf == nil || buf.Frames == 0 {
		return File{}, &EncodeError{Stage: "encode", Err: errors.New("nothing to encode")}
	}
	if newEncoder == nil {
		newEncoder = MP3Encoder
	}
	channels := min(buf.NumChannels(), 2)
	enc, err := newEncoder(buf.SampleRate, channels)
	if err != nil {
		return File{}, &EncodeError{Stage: "encode", Err: err}
	}

	left := make([]int16, BlockSize)
	right := make([]int16, BlockSize)
	srcLeft := buf.Channels[0]
	srcRight := srcLeft
	if channels == 2 {
		srcRight = buf.Channels[1]
	}

	var chunks [][]byte
	size := 0
	for off := 0; off < buf.Frames; off += BlockSize {
		if err := ctx.Err(); err != nil {
			return File{}, &EncodeError{Stage: "encode", Err: err}
		}
		end := min(off+BlockSize, buf.Frames)
		n := pcm.Quantize(left, srcLeft[off:end])
		pcm.Quantize(right, srcRight[off:end])

		chunk, err := enc.PushBlock(left[:n], right[:n])
		if err != nil {
			return File{}, &EncodeError{Stage: "encode", Err: err}
		}
		if len(chunk) > 0 {
			chunks = append(chunks, chunk)
			size += len(chunk)
		}
	}

	tail, err := enc.Finish()
	if err != nil {
		return File{}, &EncodeError{Stage: "flush", Err: err}
	}
	if len(tail) > 0 {
		chunks = append(chunks, tail)
		size += len(tail)
	}

	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c...)
	}
	return File{Name: OutputName(originalName), Data: data}, nil
}

// Exporter runs one export job at a time.
type Exporter struct {
	busy       atomic.Bool
	newEncoder EncoderFactory
}

// NewExporter uses the MP3 encoder when newEncoder is nil.
func NewExporter(newEncoder EncoderFactory) *Exporter {
	return &Exporter{newEncoder: newEncoder}
}

// Busy reports whether an export is running.
func (x *Exporter) Busy() bool { return x.busy.Load() }

// Export renders rng of buf at the mode's rate and volume and encodes the
// result. A second call while one runs returns ErrBusy.
func (x *Exporter) Export(ctx context.Context, buf *pcm.Buffer, originalName string, rng crop.Range, mode audio.RenderMode, volume float64) (File, error) {
	if !x.busy.CompareAndSwap(false, true) {
		return File{}, ErrBusy
	}
	defer x.busy.Store(false)

	began := time.Now()
	rendered, err := audio.RenderOffline(ctx, buf, rng, mode.Rate(), volume)
	if err != nil {
		return File{}, &EncodeError{Stage: "render", Err: err}
	}
	file, err := Encode(ctx, rendered, originalName, x.newEncoder)
	if err != nil {
		applog.Errorf("Export: %v", err)
		return File{}, err
	}
	applog.Infof("Export: %s %.2fs-%.2fs (%s) -> %s, %d bytes in %s",
		originalName, rng.Start, rng.End, mode, file.Name, len(file.Data), time.Since(began))
	return file, nil
}
