package cmd

import (
	"context"

	"studytools/internal/average"
	"studytools/internal/config"

	"github.com/spf13/cobra"
)

var periodsIdentifier string

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "Lists the grading periods of the account.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		return e.periods(cmd.Context(), config.First(periodsIdentifier, conf.Ecoledirecte.Identifier))
	},
}

func init() {
	periodsCmd.Flags().StringVar(&periodsIdentifier, "identifiant", "", "EcoleDirecte login, asked when empty.")
	rootCmd.AddCommand(periodsCmd)
}

func (e env) periods(ctx context.Context, identifier string) error {
	identifier, err := e.identifier(identifier)
	if err != nil {
		return err
	}
	_, grades, err := e.fetch(ctx, identifier)
	if err != nil {
		return err
	}
	records := grades.Records()
	printPeriods(e.out, grades, records, average.Periods(records))
	return nil
}
