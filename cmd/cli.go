// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"

	"visualizer/internal/config"
	applog "visualizer/internal/log"
	"visualizer/internal/pipeline"
	"visualizer/internal/source"
	"visualizer/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options holds the raw flag values. Only flags the user set override the
// loaded configuration.
type options struct {
	configPath      string
	device          int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	profile         string
	raw             bool
	width           int
	retention       float64
	record          bool
	output          string
	tui             bool
	verbose         bool
	pick            bool
}

// Execute builds the command tree and runs it with args.
func Execute(ctx context.Context, args []string) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Visualize live input from an audio device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runLive(cmd.Context(), cfg, opts.pick)
		},
	}
	runCmd.Flags().BoolVar(&opts.pick, "pick", false,
		"Choose the input device and sample rate interactively")

	playCmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Visualize a wav, mp3, ogg or flac file in real time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runFile(cmd.Context(), cfg, args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := source.Initialize(); err != nil {
				return err
			}
			defer source.Terminate()
			return source.ListDevices(cmd.OutOrStdout())
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildInfo.String())
		},
	}

	rootCmd.AddCommand(runCmd, playCmd, listCmd, versionCmd)

	opts.bind(rootCmd.PersistentFlags())

	return rootCmd
}

// bind registers the shared flags on flags.
func (o *options) bind(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "",
		"Path to a YAML configuration file (default: ./config.yaml if present)")

	// Audio Device Configuration
	flags.IntVarP(&o.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.Float64VarP(&o.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&o.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	flags.BoolVarP(&o.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Pipeline Configuration
	flags.StringVarP(&o.profile, "profile", "p", config.DefaultProfile,
		"Weighting profile (full, reduced)")
	flags.BoolVar(&o.raw, "raw", false,
		"Skip the window function and apply a flat gain instead")
	flags.IntVarP(&o.width, "width", "w", pipeline.DefaultOutputWidth,
		"Number of output magnitudes")
	flags.Float64Var(&o.retention, "retention", pipeline.DefaultRetention,
		"Fraction of frequency bins kept, in [0, 1]")

	// Recording Configuration
	flags.BoolVarP(&o.record, "record", "r", config.DefaultRecordInputStream,
		"Record the input to a WAV file")
	flags.StringVarP(&o.output, "output", "o", config.DefaultOutputFile,
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Display and Debug Configuration
	flags.BoolVarP(&o.tui, "tui", "t", false,
		"Show the terminal preview")
	flags.BoolVarP(&o.verbose, "verbose", "v", config.DefaultVerbosity,
		"Show verbose output")
}

// loadConfig reads the configuration file, applies the flags the user set
// and validates the result once, so a flag can correct a bad file value.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Audio.InputDevice = opts.device
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = opts.sampleRate
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = opts.framesPerBuffer
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = opts.lowLatency
	}
	if flags.Changed("profile") {
		cfg.Pipeline.Profile = opts.profile
	}
	if flags.Changed("raw") {
		cfg.Pipeline.Windowing = config.DefaultWindowing
		if opts.raw {
			cfg.Pipeline.Windowing = "raw"
		}
	}
	if flags.Changed("width") {
		cfg.Pipeline.OutputWidth = opts.width
	}
	if flags.Changed("retention") {
		cfg.Pipeline.Retention = opts.retention
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled = opts.record
	}
	if flags.Changed("output") {
		cfg.Recording.OutputFile = opts.output
		cfg.Recording.Enabled = true
	}
	if flags.Changed("tui") {
		cfg.TUI = opts.tui
	}
	if opts.verbose {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	configureLogging(cfg)
	return cfg, nil
}

func configureLogging(cfg *config.Config) {
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
		return
	}
	level, _ := applog.ParseLevel(cfg.LogLevel)
	applog.SetLevel(level)
}
