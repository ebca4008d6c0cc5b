// SPDX-License-Identifier: MIT
package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"forestric/internal/audio"
	"forestric/internal/crop"
	"forestric/internal/pcm"
	"forestric/pkg/utils"
)

// recorder emits one chunk per pushed block tagged with the block index,
// a "F" flush chunk, and remembers what it was fed.
type recorder struct {
	mu        sync.Mutex
	blocks    int
	sizes     []int
	rightSame bool
	finished  int
	failAt    int
	release   chan struct{}
}

func (r *recorder) PushBlock(left, right []int16) ([]byte, error) {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks++
	if r.failAt > 0 && r.blocks == r.failAt {
		return nil, errors.New("encoder exploded")
	}
	r.sizes = append(r.sizes, len(left))
	r.rightSame = r.rightSame && bytes.Equal(int16Bytes(left), int16Bytes(right))
	if r.blocks%2 == 0 {
		return nil, nil // encoders may buffer
	}
	return []byte{byte('a' + r.blocks - 1)}, nil
}

func (r *recorder) Finish() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
	return []byte("F"), nil
}

func int16Bytes(s []int16) []byte {
	b := make([]byte, 0, len(s)*2)
	for _, v := range s {
		b = append(b, byte(v), byte(v>>8))
	}
	return b
}

func factoryFor(r *recorder, gotChannels *int) EncoderFactory {
	return func(sampleRate, channels int) (Encoder, error) {
		if gotChannels != nil {
			*gotChannels = channels
		}
		return r, nil
	}
}

func TestOutputName(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"song.mp3", "song_forestric.mp3"},
		{"My Voice.final.wav", "My Voice.final_forestric.mp3"},
		{"/tmp/takes/clip.ogg", "clip_forestric.mp3"},
		{"noext", "noext_forestric.mp3"},
		{".hidden", ".hidden_forestric.mp3"},
		{"", "untitled_forestric.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := OutputName(tt.in); got != tt.want {
				t.Errorf("OutputName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode_ChunkOrderAndFlushLast(t *testing.T) {
	t.Parallel()

	// 3000 frames split as 1152 + 1152 + 696.
	buf, _ := pcm.FromChannels(44100, utils.GenerateRamp(3000))
	rec := &recorder{rightSame: true}
	var channels int

	file, err := Encode(context.Background(), buf, "voice.wav", factoryFor(rec, &channels))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, want := string(file.Data), "acF"; got != want {
		t.Errorf("data = %q, want %q", got, want)
	}
	if file.Name != "voice_forestric.mp3" {
		t.Errorf("name = %q", file.Name)
	}
	if want := []int{1152, 1152, 696}; len(rec.sizes) != 3 || rec.sizes[0] != want[0] || rec.sizes[2] != want[2] {
		t.Errorf("block sizes = %v, want %v", rec.sizes, want)
	}
	if rec.finished != 1 {
		t.Errorf("Finish called %d times, want 1", rec.finished)
	}
	if channels != 1 {
		t.Errorf("encoder channels = %d, want 1", channels)
	}
	if !rec.rightSame {
		t.Error("mono input must be fed to the right channel too")
	}
}

func TestEncode_StereoKeepsChannels(t *testing.T) {
	t.Parallel()

	left := make([]float32, 100)
	right := make([]float32, 100)
	for i := range right {
		right[i] = 0.5
	}
	buf, _ := pcm.FromChannels(48000, left, right)
	rec := &recorder{rightSame: true}
	var channels int
	if _, err := Encode(context.Background(), buf, "x.wav", factoryFor(rec, &channels)); err != nil {
		t.Fatal(err)
	}
	if channels != 2 || rec.rightSame {
		t.Errorf("stereo input should encode distinct channels (channels=%d)", channels)
	}
}

func TestEncode_FailureDiscardsOutput(t *testing.T) {
	t.Parallel()

	buf, _ := pcm.FromChannels(44100, utils.GenerateRamp(5000))
	rec := &recorder{failAt: 3}
	file, err := Encode(context.Background(), buf, "voice.wav", factoryFor(rec, nil))

	var ee *EncodeError
	if !errors.As(err, &ee) || ee.Stage != "encode" {
		t.Fatalf("err = %v, want *EncodeError at encode", err)
	}
	if file.Data != nil || file.Name != "" {
		t.Error("a failed export must not return partial data")
	}
	if rec.finished != 0 {
		t.Error("Finish should not run after a failed block")
	}
}

func TestExporter_EndToEnd(t *testing.T) {
	t.Parallel()

	const rate = 44100
	buf, err := pcm.FromChannels(rate, utils.GenerateSineWave(rate, rate, 440))
	if err != nil {
		t.Fatal(err)
	}
	rng := crop.Range{Start: 0, End: 1}

	rendered, err := audio.RenderOffline(context.Background(), buf, rng, audio.Standard.Rate(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if rendered.Frames != 17640 {
		t.Fatalf("rendered %d frames, want 17640", rendered.Frames)
	}

	x := NewExporter(nil)
	file, err := x.Export(context.Background(), buf, "sine.wav", rng, audio.Standard, 1)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(file.Data) == 0 {
		t.Fatal("export produced no bytes")
	}
	if !strings.HasSuffix(file.Name, "_forestric.mp3") {
		t.Errorf("name = %q", file.Name)
	}

	path, err := file.Save(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	saved, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(saved, file.Data) {
		t.Errorf("saved file differs from export (err %v)", err)
	}
}

func TestExporter_RenderErrorIsEncodeError(t *testing.T) {
	t.Parallel()

	x := NewExporter(factoryFor(&recorder{}, nil))
	_, err := x.Export(context.Background(), nil, "a.wav", crop.Range{Start: 0, End: 1}, audio.Smooth, 1)

	var ee *EncodeError
	var re *audio.RenderError
	if !errors.As(err, &ee) || !errors.As(err, &re) {
		t.Errorf("err = %v, want EncodeError wrapping RenderError", err)
	}
	if x.Busy() {
		t.Error("exporter should be idle after a failure")
	}
}

func TestExporter_RejectsConcurrentExport(t *testing.T) {
	t.Parallel()

	rec := &recorder{release: make(chan struct{})}
	x := NewExporter(factoryFor(rec, nil))
	buf, _ := pcm.FromChannels(8000, utils.GenerateRamp(8000))
	rng := crop.Range{Start: 0, End: 1}

	done := make(chan error, 1)
	go func() {
		_, err := x.Export(context.Background(), buf, "a.wav", rng, audio.Smooth, 1)
		done <- err
	}()

	for !x.Busy() {
		time.Sleep(time.Millisecond)
	}
	if _, err := x.Export(context.Background(), buf, "a.wav", rng, audio.Smooth, 1); !errors.Is(err, ErrBusy) {
		t.Errorf("second export = %v, want ErrBusy", err)
	}

	close(rec.release)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}
	if x.Busy() {
		t.Error("exporter still busy after the job finished")
	}
}

func BenchmarkEncode(b *testing.B) {
	buf, _ := pcm.FromChannels(44100, utils.GenerateSineWave(44100*5, 44100, 440))

	for b.Loop() {
		if _, err := Encode(context.Background(), buf, "bench.wav", nil); err != nil {
			b.Fatal(err)
		}
	}
}
