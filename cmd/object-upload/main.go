package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrise-io/go-objectupload/app"
	"github.com/bitrise-io/go-objectupload/config"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/spf13/cobra"
)

func main() {
	logger := log.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(logger, env.NewRepository(), nil).ExecuteContext(ctx)
	stop()

	if err != nil {
		logger.Errorf("%s", err)
		os.Exit(1)
	}
}

func newRootCmd(logger log.Logger, envRepo env.Repository, runnerOpts []app.Option) *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "object-upload <file>",
		Short: "Upload a file to S3-compatible object storage",
		Long: `Upload a file to S3-compatible object storage.

The bucket is created when it does not exist yet. The object is named after
the file. Failed uploads are retried with exponential backoff.

Configuration is read from the optional --config YAML file and from
OBJECT_UPLOAD_* environment variables, for example:

  OBJECT_UPLOAD_ENDPOINT=localhost:9000 OBJECT_UPLOAD_SECURE=false object-upload report.zip`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.EnableDebugLog(verbose)

			cfg, err := config.Load(envRepo, pathutil.NewPathModifier(), configPath)
			if err != nil {
				return err
			}
			logger.Debugf("Provider: %s, endpoint: %s, secure: %t, max retries: %d", cfg.Provider, cfg.Endpoint, cfg.Secure, cfg.MaxRetries)

			_, err = app.NewRunner(cfg, logger, runnerOpts...).Run(cmd.Context(), args[0])
			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}
