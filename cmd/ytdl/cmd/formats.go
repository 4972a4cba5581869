package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats <url>",
	Short: "Lists the formats a video can be downloaded in.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newEnv().formats(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func (e env) formats(ctx context.Context, videoUrl string) error {
	info, err := e.info(ctx, videoUrl)
	if err != nil {
		return err
	}
	printFormats(e.out, info.Formats)
	return nil
}
