package transcribe

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"audio-transcriber/internal/app"
	"audio-transcriber/internal/app/converter"
)

var (
	outputDir    string
	providerName string
	language     string
	parallel     int
	overwrite    bool
	showProgress bool
)

func init() {
	Cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for .txt transcripts (default: next to each input)")
	Cmd.Flags().StringVarP(&providerName, "provider", "p", "", "backend to use (default: gateway.default_provider)")
	Cmd.Flags().StringVarP(&language, "language", "l", "", "language hint passed to the backend")
	Cmd.Flags().IntVarP(&parallel, "parallel", "j", 1, "files transcribed concurrently")
	Cmd.Flags().BoolVar(&overwrite, "overwrite", false, "re-transcribe files that already have a transcript")
	Cmd.Flags().BoolVar(&showProgress, "progress", false, "always show the progress bar")
}

// Cmd represents the transcribe command
var Cmd = &cobra.Command{
	Use:   "transcribe <file or dir>...",
	Short: "Transcribe local audio files without starting the server",
	Long: `Transcribe local audio files without starting the server.

Directories are searched recursively for audio files. Each input gets a
<name>.txt transcript; inputs that already have one are skipped unless
--overwrite is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, logger, err := app.Bootstrap(configPath, verbose)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		inputs, err := converter.CollectAudioFiles(args)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return fmt.Errorf("no audio files found")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gw, err := app.InitializeGateway(ctx, cfg, logger)
		if err != nil {
			return err
		}

		summary, err := converter.NewConverter(gw, logger).Convert(ctx, inputs, converter.Options{
			OutputDir: outputDir,
			Provider:  providerName,
			Language:  language,
			Parallel:  parallel,
			Overwrite: overwrite,
			Progress: converter.ProgressConfig{
				Enabled: converter.ShouldShowProgress(showProgress),
				Writer:  cmd.ErrOrStderr(),
			},
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d transcribed, %d skipped, %d failed\n",
			summary.Succeeded, summary.Skipped, summary.Failed)
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d files failed", summary.Failed, len(inputs))
		}
		return nil
	},
}
