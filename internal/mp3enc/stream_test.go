// SPDX-License-Identifier: MIT
package mp3enc

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

// frameCounter writes one byte per frame holding the first left sample's
// low byte, so tests can check ordering and padding.
type frameCounter struct {
	frameLen int
	calls    int
	panicOn  int
}

func (f *frameCounter) Encode(w *bytes.Buffer, interleaved []int16) error {
	f.calls++
	if f.panicOn > 0 && f.calls == f.panicOn {
		panic("granule overflow")
	}
	for i := 0; i < len(interleaved); i += f.frameLen {
		w.WriteByte(byte(interleaved[i]))
	}
	return nil
}

func counterFactory(fc *frameCounter) BackendFactory {
	return func(cfg Config) (Backend, error) {
		fc.frameLen = SamplesPerFrame(cfg.SampleRate) * cfg.Channels
		return fc, nil
	}
}

func block(n int, v int16) []int16 {
	b := make([]int16, n)
	for i := range b {
		b[i] = v
	}
	return b
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"bad rate", Config{SampleRate: 44000, Channels: 2}, ErrUnsupportedSampleRate},
		{"no channels", Config{SampleRate: 44100, Channels: 0}, ErrUnsupportedChannels},
		{"surround", Config{SampleRate: 44100, Channels: 6}, ErrUnsupportedChannels},
		{"bitrate", Config{SampleRate: 44100, Channels: 2, Bitrate: 320}, ErrUnsupportedBitrate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWithBackend(tt.cfg, counterFactory(&frameCounter{}))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSamplesPerFrame(t *testing.T) {
	t.Parallel()

	for rate, want := range map[int]int{48000: 1152, 44100: 1152, 32000: 1152, 24000: 576, 8000: 576} {
		if got := SamplesPerFrame(rate); got != want {
			t.Errorf("SamplesPerFrame(%d) = %d, want %d", rate, got, want)
		}
	}
}

func TestStream_BlocksAndFlush(t *testing.T) {
	t.Parallel()

	fc := &frameCounter{}
	s, err := NewWithBackend(Config{SampleRate: 44100, Channels: 2}, counterFactory(fc))
	if err != nil {
		t.Fatal(err)
	}

	chunk, err := s.PushBlock(block(1152, 1), block(1152, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(chunk, []byte{1}) {
		t.Errorf("first chunk = %v, want [1]", chunk)
	}

	// A short block stays pending until Finish.
	chunk, err = s.PushBlock(block(500, 2), block(500, 2))
	if err != nil || chunk != nil {
		t.Fatalf("short block = %v, %v; want nothing", chunk, err)
	}

	tail, err := s.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(tail, []byte{2}) {
		t.Errorf("flush = %v, want [2]", tail)
	}
	if s.State() != Closed || s.Frames() != 2 {
		t.Errorf("state %v frames %d, want closed 2", s.State(), s.Frames())
	}
}

func TestStream_CarriesPartialFrames(t *testing.T) {
	t.Parallel()

	fc := &frameCounter{}
	s, _ := NewWithBackend(Config{SampleRate: 22050, Channels: 1}, counterFactory(fc))

	var out []byte
	for v := int16(1); v <= 4; v++ {
		chunk, err := s.PushBlock(block(400, v), nil)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, chunk...)
	}
	tail, _ := s.Finish()
	out = append(out, tail...)

	// 1600 samples at 576 per frame: frames start at samples 0, 576, 1152.
	if want := []byte{1, 2, 3}; !bytes.Equal(out, want) {
		t.Errorf("frames = %v, want %v", out, want)
	}
}

func TestStream_Closed(t *testing.T) {
	t.Parallel()

	s, _ := NewWithBackend(Config{SampleRate: 48000, Channels: 1}, counterFactory(&frameCounter{}))
	if _, err := s.Finish(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PushBlock(block(10, 0), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("PushBlock after Finish = %v, want ErrClosed", err)
	}
	if _, err := s.Finish(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Finish = %v, want ErrClosed", err)
	}
}

func TestStream_Errors(t *testing.T) {
	t.Parallel()

	s, _ := NewWithBackend(Config{SampleRate: 44100, Channels: 2}, counterFactory(&frameCounter{}))
	if _, err := s.PushBlock(block(10, 0), block(9, 0)); err == nil {
		t.Error("mismatched blocks should fail")
	}

	s, _ = NewWithBackend(Config{SampleRate: 44100, Channels: 2}, counterFactory(&frameCounter{panicOn: 1}))
	if _, err := s.PushBlock(block(1152, 0), block(1152, 0)); err == nil {
		t.Error("backend panic should surface as an error")
	}
}

func TestShineBackend_Sine(t *testing.T) {
	t.Parallel()

	const rate = 44100
	s, err := New(Config{SampleRate: rate, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	samples := make([]int16, rate/2)
	for i := range samples {
		samples[i] = int16(math.Round(8000 * math.Sin(2*math.Pi*440*float64(i)/rate)))
	}

	var out []byte
	for off := 0; off < len(samples); off += 1152 {
		end := min(off+1152, len(samples))
		chunk, err := s.PushBlock(samples[off:end], samples[off:end])
		if err != nil {
			t.Fatalf("PushBlock: %v", err)
		}
		out = append(out, chunk...)
	}
	tail, err := s.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	out = append(out, tail...)

	if len(out) < 4 {
		t.Fatalf("encoded %d bytes", len(out))
	}
	if out[0] != 0xFF || out[1]&0xE0 != 0xE0 {
		t.Errorf("stream does not start with a frame sync: % x", out[:4])
	}
}

func TestStream_OneFramePerBackendCall(t *testing.T) {
	t.Parallel()

	fc := &frameCounter{}
	s, _ := NewWithBackend(Config{SampleRate: 16000, Channels: 1}, counterFactory(fc))

	chunk, err := s.PushBlock(block(1152, 5), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(chunk, []byte{5, 5}) {
		t.Errorf("chunk = %v, want two frames", chunk)
	}
	if fc.calls != 2 || s.Frames() != 2 {
		t.Errorf("backend calls = %d, frames = %d, want 2 and 2", fc.calls, s.Frames())
	}
}

func TestShineBackend_MonoLowRates(t *testing.T) {
	t.Parallel()

	for _, rate := range []int{16000, 22050} {
		s, err := New(Config{SampleRate: rate, Channels: 1})
		if err != nil {
			t.Fatal(err)
		}
		samples := make([]int16, rate)
		for i := range samples {
			samples[i] = int16(math.Round(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))))
		}

		size := 0
		for off := 0; off < len(samples); off += 1152 {
			end := min(off+1152, len(samples))
			chunk, err := s.PushBlock(samples[off:end], nil)
			if err != nil {
				t.Fatalf("%d Hz: PushBlock: %v", rate, err)
			}
			size += len(chunk)
		}
		tail, err := s.Finish()
		if err != nil {
			t.Fatalf("%d Hz: Finish: %v", rate, err)
		}
		size += len(tail)

		// One second at 128 kbps CBR is 16000 bytes plus frame rounding.
		if size < 15000 || size > 17500 {
			t.Errorf("%d Hz mono: %d bytes, want about 16000", rate, size)
		}
	}
}
