package cmd

import (
	"context"
	"io"
	"strconv"
	"time"

	"studytools/internal/config"
	"studytools/internal/console"
	"studytools/internal/failure"
	"studytools/internal/gradestore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyFlags struct {
	identifier string
	period     string
	snapshotDb string
	precision  int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Prints the averages recorded with --snapshot-db.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := config.First(historyFlags.snapshotDb, conf.SnapshotDb)
		if target == "" {
			return failure.Validation("--snapshot-db or snapshot_db in %s is required", config.FileName)
		}
		db, err := gradestore.Open(target, conf.SnapshotDbToken)
		if err != nil {
			return err
		}
		defer db.Close()

		e := env{prompter: console.Stdio(), out: cmd.OutOrStdout(), tel: tel}
		return e.history(
			cmd.Context(),
			gradestore.NewStore(db),
			config.First(historyFlags.identifier, conf.Ecoledirecte.Identifier),
			historyFlags.period,
			historyFlags.precision,
		)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyFlags.identifier, "identifiant", "", "EcoleDirecte login, asked when empty.")
	historyCmd.Flags().StringVar(&historyFlags.period, "period", "", "Only show this period code.")
	historyCmd.Flags().StringVar(&historyFlags.snapshotDb, "snapshot-db", "", "Sqlite file or libsql url the reports were recorded into.")
	historyCmd.Flags().IntVar(&historyFlags.precision, "precision", 2, "Number of decimals.")
	rootCmd.AddCommand(historyCmd)
}

func (e env) history(ctx context.Context, store gradestore.Store, identifier, period string, precision int) error {
	identifier, err := e.identifier(identifier)
	if err != nil {
		return err
	}
	series, err := store.History(ctx, identifier, period)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return failure.Validation("no snapshot recorded for %q", identifier)
	}
	printHistory(e.out, series, precision)
	return nil
}

func printHistory(out io.Writer, series []gradestore.Series, precision int) {
	t := console.NewTable(out)
	t.AppendHeader(table.Row{"Period", "Subject", "Date", "Average"})
	for _, s := range series {
		for _, snapshot := range s.Snapshots {
			t.AppendRow(table.Row{
				s.Period,
				s.Subject,
				snapshot.Time.Format(time.DateOnly),
				strconv.FormatFloat(snapshot.Value, 'f', precision, 64),
			})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, AutoMerge: true},
	})
	t.Render()
}
