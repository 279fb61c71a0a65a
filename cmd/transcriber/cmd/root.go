package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"audio-transcriber/cmd/transcriber/cmd/serve"
	"audio-transcriber/cmd/transcriber/cmd/transcribe"
	"audio-transcriber/cmd/transcriber/cmd/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "transcriber",
	Short: "HTTP gateway that turns uploaded audio into text",
	Long: `transcriber accepts one audio file per request and returns its transcript.

Backends:
- AssemblyAI (upload, submit, poll)
- whisper.cpp running locally
- OpenAI Whisper API and Gemini, optional

Run "transcriber serve" for the HTTP API or "transcriber transcribe" for local files.`,
	SilenceUsage:     true,
	TraverseChildren: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(transcribe.Cmd)
	rootCmd.AddCommand(version.Cmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "verbose output")
}
