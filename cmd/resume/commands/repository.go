package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vberset/resume/pkg/config"
	"github.com/vberset/resume/pkg/gitlib"
	"github.com/vberset/resume/pkg/orchestrator"
	"github.com/vberset/resume/pkg/persist"
	"github.com/vberset/resume/pkg/project"
	"github.com/vberset/resume/pkg/snapshot"
)

// RepositoryCommand holds the flags of "resume repository".
type RepositoryCommand struct {
	globals  *GlobalOptions
	branches []string
	team     string
	fields   []string
	format   string
}

// NewRepositoryCommand creates the single repository command.
func NewRepositoryCommand(globals *GlobalOptions) *cobra.Command {
	rc := &RepositoryCommand{globals: globals}

	cmd := &cobra.Command{
		Use:     "repository <path>",
		Aliases: []string{"r"},
		Short:   "Changelog of a single local repository",
		Long: `Walk the given branches of a local repository and print every conventional
commit reachable from them. Nothing is fetched and no state is recorded.`,
		Args: cobra.ExactArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringArrayVarP(&rc.branches, "branch", "b", nil, "Branch to walk, repeatable (default from configuration)")
	cmd.Flags().StringVar(&rc.team, "team", "", "Keep only commits with a matching team trailer")
	registerOutputFlags(cmd.Flags(), &rc.fields, &rc.format)

	return cmd
}

func (rc *RepositoryCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(rc.globals.ConfigPath)
	if err != nil {
		return err
	}

	fields, format, err := outputSettings(cmd, cfg, rc.fields, rc.format)
	if err != nil {
		return err
	}

	sess, err := openSession(cmd, rc.globals, cfg, "")
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	branchNames := rc.branches
	if len(branchNames) == 0 {
		branchNames = []string{cfg.DefaultBranch}
	}

	branches := make([]snapshot.BranchName, 0, len(branchNames))
	for _, name := range branchNames {
		branches = append(branches, snapshot.BranchName(name))
	}

	path, err := filepath.Abs(gitlib.TrimPathSeparator(args[0]))
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %w", persist.ErrIO, args[0], err)
	}

	p := project.Project{
		Name:     filepath.Base(path),
		Origin:   snapshot.RepositoryOrigin(path),
		Branches: branches,
		Team:     rc.team,
	}

	projOpts := project.Options{Logger: sess.providers.Logger, Tracer: sess.providers.Tracer}

	result, err := orchestrator.Run(ctx, []project.Project{p}, nil, orchestrator.Options{
		Workers:  1,
		Fields:   fields,
		Open:     orchestrator.StandaloneOpener(projOpts),
		Renderer: sess.renderer,
		Logger:   sess.providers.Logger,
		Tracer:   sess.providers.Tracer,
		Metrics:  sess.metrics,
	})
	if err != nil {
		return err
	}

	return writeChangelog(cmd, result.Changelog, format)
}
