// SPDX-License-Identifier: MIT
package audio

import (
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"forestric/internal/pcm"
)

// wavChunkFrames bounds the interleave buffer used while writing.
const wavChunkFrames = 4096

// WriteWAV writes buf as 16-bit PCM WAV. The encoder patches the header on
// close, so w must be seekable.
func WriteWAV(w io.WriteSeeker, buf *pcm.Buffer) error {
	if buf == nil || buf.NumChannels() == 0 {
		return errors.WithStack(pcm.ErrNoChannels)
	}
	channels := buf.NumChannels()
	enc := wav.NewEncoder(w, buf.SampleRate, 16, channels, 1)

	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: buf.SampleRate},
		SourceBitDepth: 16,
	}
	data := make([]int, wavChunkFrames*channels)
	for off := 0; off < buf.Frames; off += wavChunkFrames {
		end := min(off+wavChunkFrames, buf.Frames)
		n := 0
		for i := off; i < end; i++ {
			for ch := 0; ch < channels; ch++ {
				data[n] = int(pcm.FloatToInt16(buf.Channels[ch][i]))
				n++
			}
		}
		ib.Data = data[:n]
		if err := enc.Write(ib); err != nil {
			return errors.Wrap(err, "failed to write wav samples")
		}
	}
	return errors.Wrap(enc.Close(), "failed to finalize wav header")
}

// SaveWAV creates path and writes buf to it.
func SaveWAV(path string, buf *pcm.Buffer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(file, buf); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}
