package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vberset/resume/cmd/resume/commands"
	"github.com/vberset/resume/pkg/changelog"
	"github.com/vberset/resume/pkg/config"
	"github.com/vberset/resume/pkg/conventional"
	"github.com/vberset/resume/pkg/gitlib/gittest"
	"github.com/vberset/resume/pkg/orchestrator"
	"github.com/vberset/resume/pkg/snapshot"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := commands.NewRootCommand()

	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), err
}

// writeConfig writes a configuration tracking repo and returns its path and
// the state file it points at.
func writeConfig(t *testing.T, origin string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.yaml")
	configPath := filepath.Join(dir, "resume.yaml")

	content := fmt.Sprintf(`cache_dir: %q
state_file: %q
log:
  level: error
projects:
  - name: app
    origin: %q
`, filepath.Join(dir, "cache"), statePath, origin)

	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return configPath, statePath
}

func emptyConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "resume.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))

	return path
}

type yamlEntry struct {
	Message struct {
		Summary string `yaml:"summary"`
	} `yaml:"message"`
}

func summariesOf(t *testing.T, out string) []string {
	t.Helper()

	var entries []yamlEntry

	require.NoError(t, yaml.Unmarshal([]byte(out), &entries))

	summaries := make([]string, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, e.Message.Summary)
	}

	return summaries
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand()

	for _, name := range []string{"repository", "r", "projects", "p", "snapshots", "parse", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.NotEqual(t, root, cmd, name)
	}

	for _, flag := range []string{"config", "log-level", "log-json", "quiet"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestProjectsCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := commands.NewProjectsCommand(&commands.GlobalOptions{})

	flags := []string{
		"state", "no-save", "force-save", "snapshot", "keep-going",
		"workers", "group-by", "format", "metrics-file",
	}

	for _, flagName := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flagName), "flag --%s should be registered", flagName)
	}

	require.NoError(t, cmd.Flags().Set("group-by", "type,scope"))

	val, err := cmd.Flags().GetStringSlice("group-by")
	require.NoError(t, err)
	assert.Equal(t, []string{"type", "scope"}, val)
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "resume "))
}

func TestRepositoryCommand_GroupsByCommitType(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t, "master")
	repo.Append("master", "Initial import")
	repo.Append("master", "feat: login")
	repo.Append("master", "fix(core): leak")
	repo.Append("master", "feat(ui): dark mode")

	out, err := execute(t, "repository", repo.Path, "-c", emptyConfig(t), "-g", "commit-type", "--format", "json")
	require.NoError(t, err)

	var grouped map[string][]changelog.Entry

	require.NoError(t, json.Unmarshal([]byte(out), &grouped))
	require.Len(t, grouped, 2)
	assert.Len(t, grouped["feat"], 2)
	require.Len(t, grouped["fix"], 1)
	assert.Equal(t, "leak", grouped["fix"][0].Message.Summary)
	assert.Equal(t, snapshot.BranchName("master"), grouped["fix"][0].Branch)
}

func TestRepositoryCommand_TeamFilter(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t, "master")
	repo.Append("master", "feat: one\n\nteam: core")
	repo.Append("master", "feat: two\n\nteam: web")

	out, err := execute(t, "r", repo.Path, "-c", emptyConfig(t), "--team", "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, summariesOf(t, out))
}

func TestRepositoryCommand_Errors(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t, "master")
	repo.Append("master", "feat: one")

	cfg := emptyConfig(t)

	_, err := execute(t, "repository", repo.Path, "-c", cfg, "-g", "color")
	require.ErrorIs(t, err, changelog.ErrInvalidSelector)

	_, err = execute(t, "repository", repo.Path, "-c", cfg, "-b", "missing")
	require.Error(t, err)

	_, err = execute(t, "repository", filepath.Join(t.TempDir(), "nowhere"), "-c", cfg)
	require.Error(t, err)
}

func TestProjectsCommand_IncrementalRuns(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t, "master")
	repo.Append("master", "feat: first")
	repo.Append("master", "fix: second")

	configPath, statePath := writeConfig(t, repo.Path)

	out, err := execute(t, "projects", configPath)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first", "second"}, summariesOf(t, out))

	history, err := snapshot.NewStore(statePath).Load()
	require.NoError(t, err)
	require.Equal(t, 1, history.Len())

	out, err = execute(t, "projects", configPath)
	require.NoError(t, err)
	assert.Empty(t, summariesOf(t, out))

	history, err = snapshot.NewStore(statePath).Load()
	require.NoError(t, err)
	assert.Equal(t, 1, history.Len())

	repo.Append("master", "perf: third")

	out, err = execute(t, "p", configPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"third"}, summariesOf(t, out))

	history, err = snapshot.NewStore(statePath).Load()
	require.NoError(t, err)
	assert.Equal(t, 2, history.Len())

	// Replaying from the older snapshot reports the third commit again.
	out, err = execute(t, "p", configPath, "--snapshot", "1", "--no-save")
	require.NoError(t, err)
	assert.Equal(t, []string{"third"}, summariesOf(t, out))
}

func TestProjectsCommand_NoSave(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t, "master")
	repo.Append("master", "feat: first")

	configPath, statePath := writeConfig(t, repo.Path)

	_, err := execute(t, "projects", configPath, "--no-save")
	require.NoError(t, err)

	_, err = os.Stat(statePath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestProjectsCommand_UnknownSnapshot(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t, "master")
	repo.Append("master", "feat: first")

	configPath, _ := writeConfig(t, repo.Path)

	_, err := execute(t, "projects", configPath, "--snapshot", "3")
	require.ErrorIs(t, err, snapshot.ErrSnapshotReference)
}

func TestProjectsCommand_RequiresProjects(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "projects", emptyConfig(t))
	require.ErrorIs(t, err, config.ErrConfiguration)
}

func TestSnapshotsCommands(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t, "master")
	repo.Append("master", "feat: first")

	configPath, statePath := writeConfig(t, repo.Path)

	_, err := execute(t, "projects", configPath)
	require.NoError(t, err)

	history, err := snapshot.NewStore(statePath).Load()
	require.NoError(t, err)

	last, ok := history.Last()
	require.True(t, ok)

	out, err := execute(t, "snapshots", "list", "--state", statePath)
	require.NoError(t, err)
	assert.Contains(t, out, string(last.Hash()))

	out, err = execute(t, "snapshots", "show", string(last.Hash()), "-c", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "hash: "+string(last.Hash()))
	assert.Contains(t, out, "master:")

	_, err = execute(t, "snapshots", "show", "7", "--state", statePath)
	require.ErrorIs(t, err, snapshot.ErrSnapshotReference)
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "parse", "feat(api)!: drop v1")
	require.NoError(t, err)

	var msg conventional.Message

	require.NoError(t, yaml.Unmarshal([]byte(out), &msg))
	assert.Equal(t, conventional.Type("feat"), msg.Type)
	assert.Equal(t, "api", msg.Scope)
	assert.True(t, msg.Breaking)
	assert.Equal(t, "drop v1", msg.Summary)

	_, err = execute(t, "parse", "not conventional")
	require.ErrorIs(t, err, conventional.ErrParse)
}

func TestPrintError(t *testing.T) {
	t.Parallel()

	base := errors.New("disk full")
	err := fmt.Errorf("save history: %w", fmt.Errorf("write state: %w", base))

	var buf bytes.Buffer

	commands.PrintError(&buf, err)

	assert.Equal(t, "Error: save history: write state: disk full\n"+
		"  caused by: write state: disk full\n"+
		"  caused by: disk full\n", buf.String())
}

func TestProjectsCommand_MetricsFile(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t, "master")
	repo.Append("master", "feat: first")

	configPath, _ := writeConfig(t, repo.Path)
	metricsPath := filepath.Join(t.TempDir(), "resume.prom")

	_, err := execute(t, "projects", configPath, "--metrics-file", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "resume_repositories_total")
}

func TestProjectsCommand_KeepGoing(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t, "master")
	repo.Append("master", "feat: survives")

	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.yaml")
	configPath := filepath.Join(dir, "resume.yaml")
	missing := filepath.Join(dir, "missing-origin")

	content := fmt.Sprintf(`cache_dir: %q
state_file: %q
log:
  level: error
projects:
  - name: broken
    origin: %q
  - name: app
    origin: %q
`, filepath.Join(dir, "cache"), statePath, missing, repo.Path)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	_, err := execute(t, "projects", configPath)
	require.Error(t, err)

	_, statErr := os.Stat(statePath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "fail-fast must not write state")

	out, err := execute(t, "projects", configPath, "--keep-going")
	require.ErrorIs(t, err, orchestrator.ErrPartialRun)
	assert.Equal(t, []string{"survives"}, summariesOf(t, out))

	history, err := snapshot.NewStore(statePath).Load()
	require.NoError(t, err)

	last, ok := history.Last()
	require.True(t, ok)
	assert.Equal(t, []snapshot.RepositoryOrigin{snapshot.RepositoryOrigin(repo.Path)}, last.Origins())
}
