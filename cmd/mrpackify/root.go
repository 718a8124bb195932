// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mrpackify/mrpackify/internal/config"
	"github.com/mrpackify/mrpackify/internal/discovery"
	"github.com/mrpackify/mrpackify/internal/issue"
	"github.com/mrpackify/mrpackify/internal/modpack"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	rootCmd = newRootCmd()
)

// rootOptions holds the raw flag values. Only flags the user actually set
// are forwarded to the config loader as overrides.
type rootOptions struct {
	root        string
	cfgFile     string
	modpacksDir string
	before      string
	after       string
	manual      bool
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Normalize Modrinth modpack archives in a repository",
		Long: TitleStyle.Render(config.AppName) + SubtitleStyle.Render(" - Normalize Modrinth modpack archives") + `

mrpackify finds .mrpack archives under the modpacks directory, extracts
their modrinth.index.json (stamped with the archive's sha1 and instance id)
and icon next to them, and renames each archive to instance.mrpack.

Without --manual only archives changed between two commits are processed.
Manual mode is also selected when the CI event is workflow_dispatch.

` + SubtitleStyle.Render("Examples:") + `
  mrpackify --manual                 Process every pending archive
  mrpackify --before main~3          Process archives changed since main~3
  mrpackify --root ./pack-repo -v    Run against another checkout, verbosely`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.manual, "manual", "m", false, "process every archive under the modpacks directory")
	flags.StringVar(&opts.root, "root", ".", "directory holding the modpacks directory and config file")
	flags.StringVar(&opts.modpacksDir, "modpacks-dir", config.DefaultModpacksDir, "modpacks directory, relative to the root")
	flags.StringVar(&opts.before, "before", config.DefaultBefore, "revision the change range starts from")
	flags.StringVar(&opts.after, "after", config.DefaultAfter, "revision the change range ends at")
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is <root>/mrpackify.cue)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(ExitFailure))
	}
}

func runRoot(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.NewProvider().Load(ctx, config.LoadOptions{
		BaseDir:        opts.root,
		ConfigFilePath: opts.cfgFile,
		Overrides:      flagOverrides(cmd, opts),
	})
	if err != nil {
		return failure(cmd, err, opts.verbose)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	summary, err := run(ctx, cfg, logger)
	if err != nil {
		return failure(cmd, err, cfg.Verbose)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))
	return nil
}

// failure prints the suggestions of an actionable error, and its cause
// chain when verbose, then wraps err for the exit code. fang prints the
// one-line message itself.
func failure(cmd *cobra.Command, err error, verbose bool) error {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && (verbose || len(ae.Suggestions) > 0) {
		fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Details: ")+issue.FormatForDisplay(err, verbose))
	}
	return &ExitError{Code: ExitFailure, Err: err}
}

// run wires discovery and the processor for cfg and processes every
// discovered archive.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*modpack.Summary, error) {
	source := discovery.New(cfg, discovery.WithLogger(logger))
	processor := modpack.NewProcessor(modpack.WithProcessorLogger(logger))
	return modpack.NewRunner(cfg, source, processor, logger).Run(ctx)
}

// flagOverrides maps explicitly set flags to config keys.
func flagOverrides(cmd *cobra.Command, opts *rootOptions) map[string]any {
	flags := cmd.Flags()
	overrides := map[string]any{}
	if flags.Changed("manual") {
		overrides["manual"] = opts.manual
	}
	if flags.Changed("modpacks-dir") {
		overrides["modpacks_dir"] = opts.modpacksDir
	}
	if flags.Changed("before") {
		overrides["before"] = opts.before
	}
	if flags.Changed("after") {
		overrides["after"] = opts.after
	}
	if flags.Changed("verbose") {
		overrides["verbose"] = opts.verbose
	}
	return overrides
}

// newLogger returns a slog logger backed by a charm log handler.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Prefix:          config.AppName,
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return slog.New(handler)
}

func renderSummary(s *modpack.Summary) string {
	if s.Total() == 0 {
		return SubtitleStyle.Render("No modpacks to process")
	}

	var b strings.Builder
	b.WriteString(SuccessStyle.Render("✓"))
	fmt.Fprintf(&b, " Processed %d modpack(s)", s.Processed())
	if s.Skipped > 0 {
		b.WriteString(WarningStyle.Render(fmt.Sprintf(", %d skipped", s.Skipped)))
	}
	for _, r := range s.Results {
		sha := r.SHA1
		if len(sha) > 12 {
			sha = sha[:12]
		}
		fmt.Fprintf(&b, "\n  %s %s", InstanceStyle.Render(r.Instance), SubtitleStyle.Render(sha))
	}
	return b.String()
}
