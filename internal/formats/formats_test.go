// SPDX-License-Identifier: MIT
package formats

import (
	"io"
	"testing"

	"forestric/internal/pcm"
)

func TestSniff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"riff wave", "x.bin", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), WAV},
		{"aiff", "x.bin", []byte("FORM\x00\x00\x00\x00AIFFCOMM"), AIFF},
		{"aifc", "x.bin", []byte("FORM\x00\x00\x00\x00AIFCCOMM"), AIFF},
		{"ogg", "x.bin", []byte("OggS\x00\x02"), Vorbis},
		{"id3", "x.bin", []byte("ID3\x04\x00"), MP3},
		{"frame sync", "x.bin", []byte{0xFF, 0xFB, 0x90, 0x00}, MP3},
		{"extension fallback", "Song.MP3", []byte("garbage"), MP3},
		{"unknown", "notes.txt", []byte("hello"), ""},
		{"riff but not wave", "a.avi", []byte("RIFF\x00\x00\x00\x00AVI LIST"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Sniff(tt.file, tt.data); got != tt.want {
				t.Errorf("Sniff(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestLooksLikeAudio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, mime string
		want       bool
	}{
		{"track.bin", "audio/mpeg", true},
		{"track.M4A", "", true},
		{"track.ogg", "application/ogg", true},
		{"photo.png", "image/png", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		if got := LooksLikeAudio(tt.name, tt.mime); got != tt.want {
			t.Errorf("LooksLikeAudio(%q, %q) = %v, want %v", tt.name, tt.mime, got, tt.want)
		}
	}
}

type nopDecoder struct{}

func (nopDecoder) Decode(r io.Reader) (pcm.Source, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if _, ok := reg.Get(WAV); ok {
		t.Fatal("empty registry returned a decoder")
	}
	reg.Register(WAV, nopDecoder{})
	if _, ok := reg.Get(WAV); !ok {
		t.Fatal("registered decoder not found")
	}
}
