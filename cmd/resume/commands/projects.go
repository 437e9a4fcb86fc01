package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vberset/resume/pkg/config"
	"github.com/vberset/resume/pkg/gitlib"
	"github.com/vberset/resume/pkg/orchestrator"
	"github.com/vberset/resume/pkg/project"
	"github.com/vberset/resume/pkg/snapshot"
)

// ProjectsCommand holds the flags of "resume projects".
type ProjectsCommand struct {
	globals     *GlobalOptions
	statePath   string
	noSave      bool
	forceSave   bool
	snapshotRef string
	keepGoing   bool
	workers     int
	fields      []string
	format      string
	metricsFile string
}

// NewProjectsCommand creates the multi-project command.
func NewProjectsCommand(globals *GlobalOptions) *cobra.Command {
	pc := &ProjectsCommand{globals: globals}

	cmd := &cobra.Command{
		Use:     "projects [config]",
		Aliases: []string{"p"},
		Short:   "Changelog of every configured project since the last snapshot",
		Long: `Fetch the configured branches of every project into the cache, print the
conventional commits added since the baseline snapshot and record the new
branch heads as the latest snapshot.

The baseline is the most recent snapshot unless --snapshot selects another
one by index (0 is the most recent) or by hash.`,
		Args: cobra.MaximumNArgs(1),
		RunE: pc.run,
	}

	cmd.Flags().StringVar(&pc.statePath, "state", "", "Snapshot history file (default from configuration)")
	cmd.Flags().BoolVar(&pc.noSave, "no-save", false, "Do not record the new snapshot")
	cmd.Flags().BoolVar(&pc.forceSave, "force-save", false, "Rewrite the history file even when nothing changed")
	cmd.Flags().StringVar(&pc.snapshotRef, "snapshot", "", "Baseline snapshot, by index or hash")
	cmd.Flags().BoolVar(&pc.keepGoing, "keep-going", false, "Report failed repositories and carry on with the others")
	cmd.Flags().IntVar(&pc.workers, "workers", 0, "Repositories processed concurrently (default from configuration)")
	cmd.Flags().StringVar(&pc.metricsFile, "metrics-file", "", "Write run metrics in the Prometheus text format to this file")
	registerOutputFlags(cmd.Flags(), &pc.fields, &pc.format)

	cmd.MarkFlagsMutuallyExclusive("no-save", "force-save")

	return cmd
}

func (pc *ProjectsCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	configPath := pc.globals.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	err = cfg.RequireProjects()
	if err != nil {
		return err
	}

	fields, format, err := outputSettings(cmd, cfg, pc.fields, pc.format)
	if err != nil {
		return err
	}

	store := snapshot.NewStore(pc.resolveStatePath(cfg))

	history, err := store.Load()
	if err != nil {
		return err
	}

	previous, err := baseline(history, pc.snapshotRef)
	if err != nil {
		return err
	}

	cache, err := openCache(cfg)
	if err != nil {
		return err
	}

	sess, err := openSession(cmd, pc.globals, cfg, pc.metricsFile)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	logger := sess.providers.Logger

	workers := cfg.Workers
	if cmd.Flags().Changed("workers") {
		workers = pc.workers
	}

	projOpts := project.Options{
		Credentials: gitlib.CredentialsFromEnv(),
		Logger:      logger,
		Tracer:      sess.providers.Tracer,
	}

	result, runErr := orchestrator.Run(ctx, projectsOf(cfg), previous, orchestrator.Options{
		Workers:   workers,
		KeepGoing: pc.keepGoing,
		Fields:    fields,
		Open:      orchestrator.CacheOpener(cache, projOpts),
		Renderer:  sess.renderer,
		Logger:    logger,
		Tracer:    sess.providers.Tracer,
		Metrics:   sess.metrics,
	})
	if runErr != nil && !errors.Is(runErr, orchestrator.ErrPartialRun) {
		return runErr
	}

	err = writeChangelog(cmd, result.Changelog, format)
	if err != nil {
		return errors.Join(err, runErr)
	}

	if pc.noSave {
		return runErr
	}

	grew := history.Push(result.Snapshot)
	if grew || pc.forceSave {
		err = store.Save(history)
		if err != nil {
			return errors.Join(err, runErr)
		}
	}

	logger.InfoContext(ctx, "snapshot recorded",
		"hash", result.Snapshot.Hash(), "new", grew, "state", store.Path(), "snapshots", history.Len())

	return runErr
}

func (pc *ProjectsCommand) resolveStatePath(cfg *config.Config) string {
	if pc.statePath != "" {
		return pc.statePath
	}

	return cfg.StateFile
}

// baseline picks the snapshot the run starts from: ref when given, else the
// most recent one. An empty history without ref means a first run.
func baseline(history *snapshot.History, ref string) (*snapshot.Snapshot, error) {
	if ref != "" {
		s, err := history.Resolve(ref)
		if err != nil {
			return nil, err
		}

		return &s, nil
	}

	s, ok := history.Last()
	if !ok {
		return nil, nil //nolint:nilnil // no baseline on a first run.
	}

	return &s, nil
}

func openCache(cfg *config.Config) (*project.Cache, error) {
	cache, err := project.NewCache(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	return cache, nil
}

func projectsOf(cfg *config.Config) []project.Project {
	projects := make([]project.Project, 0, len(cfg.Projects))

	for _, p := range cfg.Projects {
		branches := make([]snapshot.BranchName, 0, len(p.Branches))
		for _, b := range p.Branches {
			branches = append(branches, snapshot.BranchName(b))
		}

		projects = append(projects, project.Project{
			Name:     p.Name,
			Origin:   snapshot.RepositoryOrigin(p.Origin),
			Branches: branches,
			Team:     p.Team,
		})
	}

	return projects
}
