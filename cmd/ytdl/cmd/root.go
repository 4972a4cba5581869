package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"studytools/internal/components/telemetry"
	"studytools/internal/config"
	"studytools/internal/console"
	"studytools/internal/failure"
	"studytools/internal/video"
	"studytools/lib/osutil"
	libtelemetry "studytools/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose bool

var (
	conf      config.Config
	tel       telemetry.API = telemetry.SlogAPI{}
	otelSetup libtelemetry.Telemetry
)

var downloadFlags struct {
	output    string
	format    string
	outputDir string
}

var rootCmd = &cobra.Command{
	Use:   "ytdl [url]",
	Short: "ytdl downloads a video in the format of your choice.",
	Args:  cobra.MaximumNArgs(1),
	// errors are printed once by Execute
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		libtelemetry.InitSlog(verbose)

		var err error
		conf, err = config.Load()
		if err != nil {
			return err
		}
		otelSetup, err = libtelemetry.SetupFromEnv(cmd.Context(), "ytdl")
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		req := downloadRequest{
			Name:      downloadFlags.output,
			Format:    downloadFlags.format,
			OutputDir: config.First(downloadFlags.outputDir, conf.Ytdl.OutputDir),
		}
		if len(args) > 0 {
			req.Url = args[0]
		}
		return newEnv().download(cmd.Context(), req)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug information.")
	rootCmd.Flags().StringVarP(&downloadFlags.output, "output", "o", "", "File name without extension, asked when empty.")
	rootCmd.Flags().StringVarP(&downloadFlags.format, "format", "f", "", "Format index or label, asked when empty.")
	rootCmd.Flags().StringVar(&downloadFlags.outputDir, "dir", "", "Directory the video is saved into.")
}

func newEnv() env {
	return env{
		prompter: console.Stdio(),
		out:      os.Stdout,
		status:   os.Stderr,
		source:   video.NewYoutubeSource(http.DefaultClient, tel),
		tel:      tel,
	}
}

func Execute() {
	ctx, cancel := osutil.SignalContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	shutdownErr := otelSetup.Shutdown(context.Background())
	if shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}
	if err != nil {
		console.PrintError(os.Stderr, err)
	}
	os.Exit(failure.ExitCode(err))
}
