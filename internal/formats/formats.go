// SPDX-License-Identifier: MIT

// Package formats maps file contents to the decoder able to read them.
// Each subpackage wraps one third-party codec behind pcm.Source.
package formats

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"forestric/internal/pcm"
)

// Format names used as registry keys.
const (
	WAV    = "wav"
	AIFF   = "aiff"
	MP3    = "mp3"
	Vorbis = "vorbis"
)

// Decoder opens a stream of encoded audio.
type Decoder interface {
	Decode(r io.Reader) (pcm.Source, error)
}

// Registry holds the decoders known to the process.
type Registry struct {
	codecs map[string]Decoder
	mu     sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[format] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[format]
	return d, ok
}

// Sniff identifies the container from the leading bytes, falling back to
// the file extension. It returns "" when neither is recognised.
func Sniff(name string, data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return WAV
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("FORM")) &&
		(bytes.Equal(data[8:12], []byte("AIFF")) || bytes.Equal(data[8:12], []byte("AIFC"))):
		return AIFF
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("OggS")):
		return Vorbis
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return MP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return MP3
	}
	return byExtension(name)
}

func byExtension(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		return WAV
	case ".aif", ".aiff", ".aifc":
		return AIFF
	case ".mp3":
		return MP3
	case ".ogg", ".oga":
		return Vorbis
	}
	return ""
}

// acceptedExtensions mirrors the file picker filter of the editor.
var acceptedExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true,
	".oga": true, ".aif": true, ".aiff": true,
}

// LooksLikeAudio is the advisory import filter: a MIME type under audio/ or
// a known extension. Decoding remains the authority on what is accepted.
func LooksLikeAudio(name, mimeType string) bool {
	if strings.HasPrefix(strings.ToLower(mimeType), "audio/") {
		return true
	}
	return acceptedExtensions[strings.ToLower(filepath.Ext(name))]
}
