// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"forestric/internal/audio"
	"forestric/internal/build"
	"forestric/internal/config"
	"forestric/internal/crop"
	"forestric/internal/studio"
)

// Options holds the command line flags.
type Options struct {
	ConfigPath string
	Verbose    bool
	Mode       string
	Volume     float64
	Start      string
	End        string
	Output     string
	Format     string
	Width      int
	Height     int
	Spectrum   bool
	Pick       bool
}

// runner carries the state shared by the commands of one invocation.
type runner struct {
	opts    Options
	cfg     *config.Config
	logFile *os.File
	out     io.Writer

	// engineOpts are appended to the engine options, for tests.
	engineOpts []audio.EngineOption
}

// Execute runs the command line in args until it finishes or ctx is
// cancelled.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand(os.Stdout)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree, writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	return newRootCommand(&runner{out: out})
}

func newRootCommand(r *runner) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [file]",
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// The editor owns the terminal, so it only logs to a file.
			return r.setup(cmd, cmd.Parent() == nil)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if r.logFile != nil {
				r.logFile.Close()
			}
		},
		RunE: r.runEditor,
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetOut(r.out)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&r.opts.ConfigPath, "config", "c", "",
		"Configuration file (default forestric.yaml or config.yaml in the working directory)")
	flags.BoolVarP(&r.opts.Verbose, "verbose", "v", false,
		"Show verbose output")
	flags.StringVarP(&r.opts.Mode, "mode", "m", config.DefaultMode,
		"Render mode: standard (2.5x) or smooth (2.0x)")
	flags.Float64Var(&r.opts.Volume, "volume", config.DefaultVolume,
		"Master volume, 0 to 2")

	rootCmd.AddCommand(
		r.exportCommand(),
		r.playCommand(),
		r.infoCommand(),
		r.waveformCommand(),
		r.devicesCommand(),
	)
	return rootCmd
}

// setup loads the configuration, lets flags override it and starts
// logging.
func (r *runner) setup(cmd *cobra.Command, quiet bool) error {
	cfg, err := config.LoadConfig(r.opts.ConfigPath)
	if err != nil {
		return err
	}
	if r.opts.Verbose {
		cfg.Debug = true
	}
	if cmd.Flags().Changed("mode") {
		cfg.Studio.Mode = r.opts.Mode
	}
	if cmd.Flags().Changed("volume") {
		cfg.Studio.Volume = r.opts.Volume
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid flags")
	}
	r.cfg = cfg

	f, err := setupLogging(cfg, quiet)
	if err != nil {
		return err
	}
	r.logFile = f
	return nil
}

func addRangeFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.Start, "start", "s", "",
		"Selection start, in seconds or m:ss.ss (default start of track)")
	cmd.Flags().StringVarP(&opts.End, "end", "e", "",
		"Selection end, in seconds or m:ss.ss (default end of track)")
}

// ParseTime reads a time given as plain seconds ("90.5") or as minutes
// and seconds ("1:30.5").
func ParseTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if m, sec, ok := strings.Cut(s, ":"); ok {
		if _, err := strconv.Atoi(strings.TrimSpace(m)); err != nil {
			return 0, errors.Errorf("invalid minutes in %q", s)
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(sec), 64); err != nil {
			return 0, errors.Errorf("invalid seconds in %q", s)
		}
		return crop.FromMinutesSeconds(m, sec), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("invalid time %q, want seconds or m:ss.ss", s)
	}
	return v, nil
}

// applyRange sets the selection from --start and --end.
func (r *runner) applyRange(s *studio.Studio) error {
	m := s.Crop()
	if m == nil {
		return audio.ErrNoFile
	}
	start, end := 0.0, m.Duration()
	var err error
	if r.opts.Start != "" {
		if start, err = ParseTime(r.opts.Start); err != nil {
			return err
		}
	}
	if r.opts.End != "" {
		if end, err = ParseTime(r.opts.End); err != nil {
			return err
		}
	}
	if end <= start {
		return errors.Errorf("selection end %s is not after start %s",
			crop.FormatMinutesSeconds(end), crop.FormatMinutesSeconds(start))
	}
	m.SetRange(start, end)
	return nil
}
