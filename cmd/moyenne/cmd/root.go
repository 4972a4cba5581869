package cmd

import (
	"context"
	"log/slog"
	"os"

	"studytools/internal/components/telemetry"
	"studytools/internal/config"
	"studytools/internal/console"
	"studytools/internal/ecoledirecte"
	"studytools/internal/failure"
	"studytools/lib/osutil"
	libtelemetry "studytools/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose  bool
	dumpHttp string
)

var (
	conf      config.Config
	tel       telemetry.API = telemetry.SlogAPI{}
	otelSetup libtelemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "moyenne",
	Short: "moyenne computes the averages of an EcoleDirecte account.",
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
		otelSetup, err = libtelemetry.SetupFromEnv(cmd.Context(), "moyenne")
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug information.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every http exchange (secrets redacted) into this directory.")
}

func newClient() (*ecoledirecte.Client, error) {
	opts := ecoledirecte.Options{
		BaseUrl:          conf.Ecoledirecte.BaseUrl,
		BypassCloudflare: true,
	}
	if dumpHttp != "" {
		output, err := telemetry.NewFilesystemOutput(dumpHttp)
		if err != nil {
			return nil, err
		}
		opts.Output = output
	}
	return ecoledirecte.NewClient(opts, tel)
}

func newEnv() (env, error) {
	client, err := newClient()
	if err != nil {
		return env{}, err
	}
	return env{
		prompter: console.Stdio(),
		out:      os.Stdout,
		status:   os.Stderr,
		grades:   client,
		tel:      tel,
	}, nil
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
