// SPDX-License-Identifier: MIT
package aiff

import (
	"bytes"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/pkg/errors"

	"forestric/internal/pcm"
)

// mockAiffReader serves a fixed set of integer samples.
type mockAiffReader struct {
	format  *goaudio.Format
	samples []int
	offset  int
	err     error
}

func (m *mockAiffReader) Format() *goaudio.Format { return m.format }

func (m *mockAiffReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	return n, nil
}

func TestSource_ReadAll(t *testing.T) {
	t.Parallel()

	dec := &mockAiffReader{
		format:  &goaudio.Format{NumChannels: 1, SampleRate: 44100},
		samples: []int{0, 16384, -32768, 32767},
	}
	src := &source{dec: dec, sampleRate: 44100, channels: 1, maxVal: 32768}

	buf, err := pcm.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if buf.Frames != 4 {
		t.Fatalf("Frames = %d, want 4", buf.Frames)
	}
	if buf.Channels[0][1] != 0.5 || buf.Channels[0][2] != -1 {
		t.Errorf("unexpected samples %v", buf.Channels[0])
	}
}

func TestSource_Error(t *testing.T) {
	t.Parallel()

	dec := &mockAiffReader{format: &goaudio.Format{NumChannels: 1, SampleRate: 8000}, err: io.ErrUnexpectedEOF}
	src := &source{dec: dec, sampleRate: 8000, channels: 1, maxVal: 32768}
	if _, err := src.ReadSamples(make([]float32, 8)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader([]byte("This is not AIFF data")))
	if err == nil {
		t.Error("Decode() error = nil, want error for invalid data")
	}
}

func TestFullScale(t *testing.T) {
	t.Parallel()

	if _, err := fullScale(20); !errors.Is(err, ErrUnsupportedDepth) {
		t.Errorf("expected ErrUnsupportedDepth, got %v", err)
	}
}
