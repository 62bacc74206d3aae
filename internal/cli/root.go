package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/adapters"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/analysis"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/config"
	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/monitoring"
)

// Version is stamped at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "dev"

// Exit codes
const (
	ExitOK       = 0
	ExitInvalid  = 1 // bad input, bad selection or any other failure
	ExitNotFound = 2 // the video file or URL metadata could not be obtained
)

// App carries the state shared by every subcommand of one invocation
type App struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	v       *viper.Viper
	cfgFile string
	debug   bool
	cfg     config.Config
	logger  *monitoring.Logger

	now     func() time.Time
	fetcher adapters.MetadataFetcher
}

// AppOption customises an App, mostly for tests
type AppOption func(*App)

// WithIO replaces stdin, stdout and stderr
func WithIO(in io.Reader, out, errOut io.Writer) AppOption {
	return func(a *App) {
		a.in, a.out, a.errOut = in, out, errOut
	}
}

// WithClock pins the analyzer's notion of now
func WithClock(now func() time.Time) AppOption {
	return func(a *App) { a.now = now }
}

// WithMetadataFetcher replaces the configured metadata backend
func WithMetadataFetcher(f adapters.MetadataFetcher) AppOption {
	return func(a *App) { a.fetcher = f }
}

// NewRootCmd builds the aivd command tree
func NewRootCmd(opts ...AppOption) *cobra.Command {
	a := &App{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		v:      viper.New(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "aivd",
		Short: "aivd - heuristic AI-generated video triage",
		Long: `aivd scores videos for signs of AI generation from cheap metadata:
file name, size, container format and age for local files, and the title,
description, uploader and tags a platform publishes for a URL.

It never decodes video content. Scores are a triage signal, not proof.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}
	rootCmd.SetIn(a.in)
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.aivd/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "log every rule evaluation")

	rootCmd.AddCommand(
		a.newAnalyzeCmd(),
		a.newURLCmd(),
		a.newScanCmd(),
		a.newServeCmd(),
		a.newConfigCmd(),
		a.newVersionCmd(),
	)

	return rootCmd
}

// initConfig resolves configuration and the logger once flags are parsed
func (a *App) initConfig() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := monitoring.ParseLevel(cfg.Log.Level)
	if level < slog.LevelWarn {
		// keep the report readable unless asked otherwise
		level = slog.LevelWarn
	}
	if a.debug {
		level = slog.LevelDebug
	}
	a.logger = monitoring.NewLoggerWithLevel(a.errOut, level)
	return nil
}

func (a *App) analyzer() *analysis.Analyzer {
	return analysis.NewAnalyzer(
		analysis.WithClock(a.now),
		analysis.WithLogger(a.logger.Logger),
	)
}

func (a *App) metadataFetcher() (adapters.MetadataFetcher, error) {
	if a.fetcher != nil {
		return a.fetcher, nil
	}
	return adapters.NewMetadataFetcherFromConfig(a.cfg.Fetch, a.cfg.Cache, nil, a.logger)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "aivd %s\n", Version)
		},
	}
}

// ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case apperrors.IsSubjectUnavailable(err):
		return ExitNotFound
	default:
		return ExitInvalid
	}
}

// Execute runs the CLI against os.Args and returns the exit status
func Execute() int {
	return ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the CLI against args and returns the exit status
func ExecuteArgs(args []string) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
	}
	return ExitCode(err)
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}
