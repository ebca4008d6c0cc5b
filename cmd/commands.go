// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"forestric/internal/analysis"
	"forestric/internal/audio"
	"forestric/internal/crop"
	"forestric/internal/export"
	"forestric/internal/formats"
	applog "forestric/internal/log"
	"forestric/internal/pcm"
	"forestric/internal/studio"
	"forestric/internal/tui"
	"forestric/internal/waveform"
)

// Export formats.
const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

// runEditor opens the terminal editor, loading args[0] when given.
func (r *runner) runEditor(cmd *cobra.Command, args []string) error {
	a, err := newApp(r.cfg, r.engineOpts...)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := tui.EditorOptions{
		ExportDir: r.cfg.Export.OutputDir,
		Frames:    a.frames,
		Ended:     a.ended,
	}
	if len(args) == 1 {
		opts.Path = args[0]
	}
	return tui.RunEditor(cmd.Context(), a.studio, opts)
}

// headless returns a studio without a playback engine.
func (r *runner) headless() (*studio.Studio, error) {
	mode, err := audio.ParseRenderMode(r.cfg.Studio.Mode)
	if err != nil {
		return nil, err
	}
	return studio.New(nil, export.NewExporter(export.MP3Encoder),
		studio.WithMode(mode),
		studio.WithVolume(r.cfg.Studio.Volume),
	), nil
}

// load reads path into s and applies the range flags.
func (r *runner) load(ctx context.Context, s *studio.Studio, path string) error {
	if err := s.LoadFile(ctx, path); err != nil {
		return err
	}
	return r.applyRange(s)
}

// destination resolves where a file called name is written: --output when
// it names a file, inside --output when it names a directory, otherwise
// inside the configured export directory.
func (r *runner) destination(name string) (string, error) {
	out := r.opts.Output
	if out == "" {
		out = r.cfg.Export.OutputDir
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, name), nil
	}
	if strings.HasSuffix(out, string(os.PathSeparator)) {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return "", errors.Wrap(err, "failed to create output directory")
		}
		return filepath.Join(out, name), nil
	}
	return out, nil
}

func (r *runner) exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Render the selection pitched up and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := r.headless()
			if err != nil {
				return err
			}
			if err := r.load(ctx, s, args[0]); err != nil {
				return err
			}
			req, _ := s.ExportRequest()

			var path string
			switch strings.ToLower(r.opts.Format) {
			case FormatMP3:
				path, err = r.exportMP3(ctx, s, req)
			case FormatWAV:
				path, err = r.exportWAV(ctx, req)
			default:
				return errors.Errorf("unknown format %q, want mp3 or wav", r.opts.Format)
			}
			if err != nil {
				return err
			}

			out := req.Range.Span() / req.Mode.Rate()
			fmt.Fprintf(r.out, "Exported %s (%s, %.1fx, %s)\n",
				path, req.Mode.Label(), req.Mode.Rate(), crop.FormatMinutesSeconds(out))
			return nil
		},
	}
	addRangeFlags(cmd, &r.opts)
	cmd.Flags().StringVarP(&r.opts.Output, "output", "o", "",
		"Output file or directory (default export.output_dir)")
	cmd.Flags().StringVarP(&r.opts.Format, "format", "f", FormatMP3,
		"Output format: mp3 or wav")
	return cmd
}

func (r *runner) exportMP3(ctx context.Context, s *studio.Studio, req studio.ExportRequest) (string, error) {
	f, err := s.Export(ctx, req)
	if err != nil {
		return "", err
	}
	path, err := r.destination(f.Name)
	if err != nil {
		return "", err
	}
	f.Name = filepath.Base(path)
	return f.Save(filepath.Dir(path))
}

func (r *runner) exportWAV(ctx context.Context, req studio.ExportRequest) (string, error) {
	buf, err := audio.RenderOffline(ctx, req.Buffer, req.Range, req.Mode.Rate(), req.Volume)
	if err != nil {
		return "", err
	}
	name := strings.TrimSuffix(export.OutputName(req.Name), ".mp3") + ".wav"
	path, err := r.destination(name)
	if err != nil {
		return "", err
	}
	if err := audio.SaveWAV(path, buf); err != nil {
		return "", err
	}
	return path, nil
}

func (r *runner) playCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Preview the selection pitched up without the editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(r.cfg, r.engineOpts...)
			if err != nil {
				return err
			}
			defer a.Close()

			s := a.studio
			if err := r.load(ctx, s, args[0]); err != nil {
				return err
			}
			rng := s.Range()
			if err := s.Play(); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Playing %s %s-%s (%s), ctrl+c to stop\n",
				s.Track().Name, crop.FormatMinutesSeconds(rng.Start),
				crop.FormatMinutesSeconds(rng.End), s.Mode().Label())

			for {
				select {
				case <-ctx.Done():
					s.Stop()
					fmt.Fprintln(r.out, "Stopped")
					return nil
				case <-a.ended:
					fmt.Fprintln(r.out, "Finished")
					return nil
				case f := <-a.frames:
					applog.Debugf("Play: %s peak %.3f", crop.FormatMinutesSeconds(f.Position), f.Peak)
				}
			}
		},
	}
	addRangeFlags(cmd, &r.opts)
	return cmd
}

func (r *runner) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Describe a track and its rendered lengths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := filepath.Base(args[0])
			data, err := os.ReadFile(args[0])
			if err != nil {
				return &audio.DecodeError{Name: name, Err: err}
			}
			buf, err := audio.Decode(cmd.Context(), name, data)
			if err != nil {
				return err
			}
			r.writeInfo(name, formats.Sniff(name, data), buf)
			return nil
		},
	}
}

func (r *runner) writeInfo(name, format string, buf *pcm.Buffer) {
	d := buf.Duration()
	fmt.Fprintf(r.out, "File:        %s\n", name)
	fmt.Fprintf(r.out, "Format:      %s\n", format)
	fmt.Fprintf(r.out, "Sample rate: %d Hz\n", buf.SampleRate)
	fmt.Fprintf(r.out, "Channels:    %d\n", buf.NumChannels())
	fmt.Fprintf(r.out, "Duration:    %s (%d frames)\n", crop.FormatMinutesSeconds(d), buf.Frames)
	for _, m := range audio.Modes {
		n := audio.OutputFrameCount(d, m.Rate(), buf.SampleRate)
		fmt.Fprintf(r.out, "%-12s %s at %.1fx, +%.1f st: %s (%d frames)\n",
			m.String()+":", m.Label(), m.Rate(), m.Semitones(),
			crop.FormatMinutesSeconds(d/m.Rate()), n)
	}
}

func (r *runner) waveformCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waveform <file>",
		Short: "Draw the waveform and selection as a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := r.headless()
			if err != nil {
				return err
			}
			if err := r.load(cmd.Context(), s, args[0]); err != nil {
				return err
			}

			w, h := r.opts.Width, r.opts.Height
			if w <= 0 {
				w = r.cfg.Canvas.Width
			}
			if h <= 0 {
				h = r.cfg.Canvas.Height
			}
			t := s.Track()
			frame, err := waveform.Render(t.Buffer, s.Range(), w, h)
			if err != nil {
				return err
			}
			var overlay *waveform.Path
			if r.opts.Spectrum {
				bins, err := r.spectrumAt(t.Buffer, s.Range())
				if err != nil {
					return err
				}
				p := waveform.Overlay(bins, w, h)
				overlay = &p
			}

			base := strings.TrimSuffix(t.Name, filepath.Ext(t.Name))
			path, err := r.destination(base + "_waveform.png")
			if err != nil {
				return err
			}
			if err := writePNG(path, frame, overlay); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Wrote %s (%dx%d)\n", path, w, h)
			return nil
		},
	}
	addRangeFlags(cmd, &r.opts)
	cmd.Flags().StringVarP(&r.opts.Output, "output", "o", "",
		"Output file or directory (default export.output_dir)")
	cmd.Flags().IntVar(&r.opts.Width, "width", 0, "Image width (default canvas.width)")
	cmd.Flags().IntVar(&r.opts.Height, "height", 0, "Image height (default canvas.height)")
	cmd.Flags().BoolVar(&r.opts.Spectrum, "spectrum", false,
		"Overlay the spectrum at the middle of the selection")
	return cmd
}

// spectrumAt analyses one FFT window centred on the selection.
func (r *runner) spectrumAt(buf *pcm.Buffer, rng crop.Range) ([]uint8, error) {
	window, err := analysis.ParseWindowFunc(r.cfg.Analysis.FFTWindow)
	if err != nil {
		return nil, err
	}
	a, err := analysis.NewAnalyser(analysis.Options{
		FFTSize:    r.cfg.Analysis.FFTSize,
		SampleRate: float64(buf.SampleRate),
		Smoothing:  r.cfg.Analysis.Smoothing,
		Window:     window,
	})
	if err != nil {
		return nil, err
	}
	mid := int((rng.Start + rng.End) / 2 * float64(buf.SampleRate))
	from := max(0, mid-a.FFTSize()/2)
	to := min(buf.Frames, from+a.FFTSize())
	a.Write(buf.Channels[0][from:to])

	bins := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)
	return bins, nil
}

func writePNG(path string, f waveform.Frame, overlay *waveform.Path) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create image")
	}
	if err := waveform.WritePNG(out, f, overlay); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

func (r *runner) devicesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List output devices, or pick one with --pick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			host := audio.AcquireContext()
			if !r.opts.Pick {
				devices, err := host.HostDevices()
				if err != nil {
					return err
				}
				audio.WriteDeviceList(r.out, devices)
				return nil
			}

			choice, ok, err := tui.RunDevicePicker(host.HostDevices, r.cfg.Playback.FramesPerBuffer)
			if err != nil || !ok {
				return err
			}
			fmt.Fprintf(r.out, "Add this to forestric.yaml:\n\n%s", choice.YAML())
			return nil
		},
	}
	cmd.Flags().BoolVar(&r.opts.Pick, "pick", false, "Choose a device interactively")
	return cmd
}
