// Package commands implements the resume CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/vberset/resume/pkg/changelog"
	"github.com/vberset/resume/pkg/config"
	"github.com/vberset/resume/pkg/observability"
	"github.com/vberset/resume/pkg/progress"
	"github.com/vberset/resume/pkg/render"
	"github.com/vberset/resume/pkg/version"
)

// GlobalOptions holds the flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogJSON    bool
	Quiet      bool
}

// Register adds the global flags to flags.
func (g *GlobalOptions) Register(flags *pflag.FlagSet) {
	flags.StringVarP(&g.ConfigPath, "config", "c", "", "Configuration file (default: ./resume.yaml or ~/.config/resume/resume.yaml)")
	flags.StringVar(&g.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default from configuration)")
	flags.BoolVar(&g.LogJSON, "log-json", false, "Write logs as JSON")
	flags.BoolVarP(&g.Quiet, "quiet", "q", false, "Disable progress bars")
}

// NewRootCommand builds the resume command tree.
func NewRootCommand() *cobra.Command {
	globals := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "resume",
		Short: "Changelogs from conventional commits",
		Long: `Resume builds changelogs from the conventional commit messages of one or
many git repositories, reporting only what changed since the last run.

Commands:
  repository  Changelog of a single local repository
  projects    Changelog of every configured project, tracked by snapshots
  snapshots   Inspect the recorded snapshots
  parse       Parse one conventional commit message`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	globals.Register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(NewRepositoryCommand(globals))
	rootCmd.AddCommand(NewProjectsCommand(globals))
	rootCmd.AddCommand(NewSnapshotsCommand(globals))
	rootCmd.AddCommand(NewParseCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewVersionCommand prints the build identity.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "resume %s\n", version.String())
		},
	}
}

// PrintError writes err followed by each wrapped cause on its own line.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(w, "  caused by: %v\n", cause)
	}
}

// session bundles the observability providers of one command execution.
type session struct {
	providers observability.Providers
	metrics   *observability.RunMetrics
	renderer  progress.Renderer
}

func openSession(cmd *cobra.Command, globals *GlobalOptions, cfg *config.Config, metricsFile string) (*session, error) {
	levelName := cfg.Log.Level
	if globals.LogLevel != "" {
		levelName = globals.LogLevel
	}

	level, err := observability.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.MetricsFile = metricsFile
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Log.JSON || globals.LogJSON
	obsCfg.LogWriter = cmd.ErrOrStderr()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create metrics: %w", err), providers.Shutdown(context.Background()))
	}

	renderer := progress.NewRenderer(progress.Options{
		Quiet:  globals.Quiet,
		Output: cmd.ErrOrStderr(),
		Logger: providers.Logger,
	})

	return &session{providers: providers, metrics: metrics, renderer: renderer}, nil
}

// close flushes telemetry. A shutdown failure is logged, never returned:
// the changelog has already been written by then.
func (s *session) close(ctx context.Context) {
	err := s.providers.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		s.providers.Logger.WarnContext(ctx, "telemetry shutdown failed", "error", err)
	}
}

// outputSettings resolves the grouping fields and format, letting flags
// override the configuration.
func outputSettings(cmd *cobra.Command, cfg *config.Config, fieldNames []string, formatName string) ([]changelog.Field, render.Format, error) {
	if !cmd.Flags().Changed("group-by") {
		fieldNames = cfg.Fields
	}

	if !cmd.Flags().Changed("format") {
		formatName = cfg.Output.Format
	}

	fields, err := changelog.ParseFields(fieldNames)
	if err != nil {
		return nil, "", err
	}

	format, err := render.ParseFormat(formatName)
	if err != nil {
		return nil, "", err
	}

	return fields, format, nil
}

func registerOutputFlags(flags *pflag.FlagSet, fields *[]string, format *string) {
	flags.StringSliceVarP(fields, "group-by", "g", nil,
		"Grouping fields, outermost first: scope, branch, origin, commit-type, breaking, team")
	flags.StringVar(format, "format", config.DefaultOutputFormat, "Output format: yaml, json, text")
}

func writeChangelog(cmd *cobra.Command, g *changelog.Grouper, format render.Format) error {
	out := cmd.OutOrStdout()

	return render.Write(out, g, format, render.Options{Color: isTerminal(out)})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
