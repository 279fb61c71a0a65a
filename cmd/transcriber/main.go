// @title Audio Transcriber API
// @version 1.0
// @description Upload an audio file and receive its transcript from a cloud or local speech-to-text backend.
// @BasePath /
package main

import (
	"audio-transcriber/cmd/transcriber/cmd"

	// Import providers to register them
	_ "audio-transcriber/internal/app/api/assemblyai"
	_ "audio-transcriber/internal/app/api/gemini"
	_ "audio-transcriber/internal/app/api/openai/whisper"
	_ "audio-transcriber/internal/app/api/whisper_cpp"
)

func main() {
	cmd.Execute()
}
