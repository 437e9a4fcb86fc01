package commands

import (
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vberset/resume/pkg/config"
	"github.com/vberset/resume/pkg/persist"
	"github.com/vberset/resume/pkg/snapshot"
)

// SnapshotsCommand holds the flags of "resume snapshots".
type SnapshotsCommand struct {
	globals   *GlobalOptions
	statePath string
}

// NewSnapshotsCommand creates the snapshot inspection commands.
func NewSnapshotsCommand(globals *GlobalOptions) *cobra.Command {
	sc := &SnapshotsCommand{globals: globals}

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect the recorded snapshots",
	}

	cmd.PersistentFlags().StringVar(&sc.statePath, "state", "", "Snapshot history file (default from configuration)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snapshots, most recent first",
		Args:  cobra.NoArgs,
		RunE:  sc.list,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <index|hash>",
		Short: "Print one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  sc.show,
	})

	return cmd
}

func (sc *SnapshotsCommand) load() (*snapshot.History, error) {
	path := sc.statePath
	if path == "" {
		cfg, err := config.LoadConfig(sc.globals.ConfigPath)
		if err != nil {
			return nil, err
		}

		path = cfg.StateFile
	}

	return snapshot.NewStore(path).Load()
}

func (sc *SnapshotsCommand) list(cmd *cobra.Command, _ []string) error {
	history, err := sc.load()
	if err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "Hash", "Repositories", "Branches"})

	for i, s := range history.Snapshots() {
		tbl.AppendRow(table.Row{
			i,
			s.Hash(),
			humanize.Comma(int64(len(s.Origins()))),
			humanize.Comma(int64(s.BranchCount())),
		})
	}

	tbl.AppendFooter(table.Row{"", "Total", humanize.Comma(int64(history.Len())), ""})
	tbl.Render()

	return nil
}

func (sc *SnapshotsCommand) show(cmd *cobra.Command, args []string) error {
	history, err := sc.load()
	if err != nil {
		return err
	}

	s, err := history.Resolve(args[0])
	if err != nil {
		return err
	}

	return persist.NewYAMLCodec().Encode(cmd.OutOrStdout(), s)
}
