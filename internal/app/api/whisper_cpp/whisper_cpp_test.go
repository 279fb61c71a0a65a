package whisper_cpp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/config"
)

// fakeWhisper writes <-of>.json and records its arguments in <-of>.args
const fakeWhisper = `
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-of" ]; then out="$arg"; fi
  prev="$arg"
done
echo "$@" > "$out.args"
cat > "$out.json" <<'JSON'
{"transcription":[{"offsets":{"from":0,"to":1500},"text":" Hello"},{"offsets":{"from":1500,"to":3000},"text":" world."}]}
JSON
`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func newModel(t *testing.T, script string, mutate func(*ModelConfig)) (*ModelHandle, string) {
	t.Helper()
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "ggml-base.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("weights"), 0o600))

	cfg := ModelConfig{
		BinaryPath: writeScript(t, dir, "whisper-cli", script),
		ModelPath:  modelPath,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	model, err := LoadModel(cfg)
	require.NoError(t, err)
	return model, dir
}

func wavInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))
	return path
}

func TestJoinSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		want     string
	}{
		{"empty", nil, ""},
		{"single", []Segment{{Text: " Hi."}}, " Hi."},
		{"ordered no separator", []Segment{{Text: "a"}, {Text: "b"}, {Text: "c"}}, "abc"},
		{"keeps whitespace", []Segment{{Text: " Hello"}, {Text: " world. "}}, " Hello world. "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinSegments(tt.segments))
		})
	}
}

func TestLoadModelValidation(t *testing.T) {
	dir := t.TempDir()
	binary := writeScript(t, dir, "whisper-cli", "exit 0\n")
	modelPath := filepath.Join(dir, "model.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("x"), 0o600))
	quantized := filepath.Join(dir, "ggml-base.en-q8_0.bin")
	require.NoError(t, os.WriteFile(quantized, []byte("x"), 0o600))

	tests := []struct {
		name    string
		cfg     ModelConfig
		wantErr string
	}{
		{"defaults", ModelConfig{BinaryPath: binary, ModelPath: modelPath}, ""},
		{"bad device", ModelConfig{BinaryPath: binary, ModelPath: modelPath, Device: "tpu"}, "unsupported device"},
		{"bad compute type", ModelConfig{BinaryPath: binary, ModelPath: modelPath, ComputeType: "int4"}, "unsupported compute type"},
		{"float16 model", ModelConfig{BinaryPath: binary, ModelPath: modelPath, ComputeType: "float16"}, ""},
		{"int8 model", ModelConfig{BinaryPath: binary, ModelPath: quantized, ComputeType: "int8"}, ""},
		{"int8 on float16 weights", ModelConfig{BinaryPath: binary, ModelPath: modelPath, ComputeType: "int8"}, "does not match f16 weights"},
		{"float16 on quantized weights", ModelConfig{BinaryPath: binary, ModelPath: quantized, ComputeType: "float16"}, "does not match q8_0 weights"},
		{"bad model size", ModelConfig{BinaryPath: binary, ModelPath: modelPath, ModelSize: "huge"}, "unsupported model size"},
		{"missing binary", ModelConfig{BinaryPath: filepath.Join(dir, "nope"), ModelPath: modelPath}, "binary not found"},
		{"missing model", ModelConfig{BinaryPath: binary, ModelPath: filepath.Join(dir, "nope.bin")}, "model not found"},
		{"model is dir", ModelConfig{BinaryPath: binary, ModelPath: dir}, "is a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := LoadModel(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 1, model.Config().MaxConcurrent)
				assert.Equal(t, "cpu", model.Config().Device)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestModelTranscribe(t *testing.T) {
	model, _ := newModel(t, fakeWhisper, func(c *ModelConfig) { c.Threads = 4 })
	input := wavInput(t)

	segments, err := model.Transcribe(context.Background(), input, 5, "en")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, 1500*time.Millisecond, segments[0].End)
	assert.Equal(t, " Hello world.", JoinSegments(segments))

	args, err := os.ReadFile(OutputPrefix(input) + ".args")
	require.NoError(t, err)
	for _, want := range []string{"-bs 5", "-l en", "-t 4", "-ng", "-oj"} {
		assert.Contains(t, string(args), want)
	}
}

func TestModelTranscribeFailure(t *testing.T) {
	model, _ := newModel(t, "echo 'error: failed to read WAV file' >&2\nexit 2\n", nil)

	_, err := model.Transcribe(context.Background(), wavInput(t), 5, "")
	require.Error(t, err)

	te := provider.AsTranscriptionError(err)
	require.NotNil(t, te)
	assert.Equal(t, provider.KindLocal, te.Kind)
	assert.Contains(t, te.Message, "failed to read WAV file")
}

func TestModelTranscribeNoOutput(t *testing.T) {
	model, _ := newModel(t, "exit 0\n", nil)

	_, err := model.Transcribe(context.Background(), wavInput(t), 5, "")
	assert.Equal(t, provider.KindLocal, provider.KindOf(err))
}

func TestModelTranscribeHonoursContext(t *testing.T) {
	model, _ := newModel(t, "exec sleep 5\n", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := model.Transcribe(ctx, wavInput(t), 5, "")
	require.Error(t, err)
	assert.Equal(t, provider.KindTimeout, provider.KindOf(err))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestModelSerializesInvocations(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "running")
	// fails if another invocation is already running
	script := `
if [ -e "` + marker + `" ]; then echo overlap >&2; exit 1; fi
touch "` + marker + `"
sleep 0.1
rm "` + marker + `"
` + fakeWhisper
	model, _ := newModel(t, script, nil)

	inputs := []string{wavInput(t), wavInput(t), wavInput(t)}

	var failures atomic.Int32
	done := make(chan struct{})
	for _, input := range inputs {
		go func(input string) {
			defer func() { done <- struct{}{} }()
			if _, err := model.Transcribe(context.Background(), input, 1, ""); err != nil {
				failures.Add(1)
			}
		}(input)
	}
	for i := 0; i < 3; i++ {
		<-done
	}
	assert.Equal(t, int32(0), failures.Load())
}

func TestLocalProviderConvertsAudio(t *testing.T) {
	model, dir := newModel(t, fakeWhisper, nil)
	ffprobe := writeScript(t, dir, "ffprobe", `echo '{"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100"}]}'`+"\n")
	ffmpeg := writeScript(t, dir, "ffmpeg", `for arg in "$@"; do out="$arg"; done; echo converted > "$out"`+"\n")

	cfg := config.Default().Providers.WhisperCpp
	cfg.FFprobePath = ffprobe
	cfg.FFmpegPath = ffmpeg
	cfg.Language = "en"
	p := NewLocalProvider(model, cfg, nil)

	scratch := t.TempDir()
	input := filepath.Join(scratch, "audio.mp3")
	require.NoError(t, os.WriteFile(input, []byte("ID3"), 0o600))

	resp, err := p.TranscriptWithOptions(context.Background(), &provider.TranscriptionRequest{
		InputFilePath: input,
		ScratchDir:    scratch,
	})
	require.NoError(t, err)
	assert.Equal(t, " Hello world.", resp.Text)
	assert.Equal(t, "en", resp.Language)
	require.Len(t, resp.Segments, 2)
	assert.Equal(t, 1.5, resp.Segments[1].Start)

	assert.FileExists(t, filepath.Join(scratch, convertedName))
	args, err := os.ReadFile(OutputPrefix(filepath.Join(scratch, convertedName)) + ".args")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(args), convertedName))
}

func TestLocalProviderRejectsUndecodableAudio(t *testing.T) {
	model, dir := newModel(t, fakeWhisper, nil)
	ffprobe := writeScript(t, dir, "ffprobe", "exit 1\n")
	ffmpeg := writeScript(t, dir, "ffmpeg", "echo 'Invalid data found when processing input' >&2\nexit 1\n")

	cfg := config.Default().Providers.WhisperCpp
	cfg.FFprobePath = ffprobe
	cfg.FFmpegPath = ffmpeg
	p := NewLocalProvider(model, cfg, nil)

	_, err := p.TranscriptWithOptions(context.Background(), &provider.TranscriptionRequest{InputFilePath: wavInput(t)})
	assert.Equal(t, provider.KindInvalidInput, provider.KindOf(err))
}

func TestLocalProviderHealthCheck(t *testing.T) {
	model, _ := newModel(t, fakeWhisper, nil)
	p := NewLocalProvider(model, config.Default().Providers.WhisperCpp, nil)

	assert.NoError(t, p.ValidateConfiguration())
	assert.NoError(t, p.HealthCheck(context.Background()))

	require.NoError(t, os.Remove(model.Config().ModelPath))
	assert.ErrorIs(t, p.HealthCheck(context.Background()), errModelMissing)
	assert.Equal(t, provider.ProviderTypeLocal, p.GetProviderInfo().Type)
}

func TestWeightType(t *testing.T) {
	tests := map[string]string{
		"/models/ggml-base.bin":                "f16",
		"/models/ggml-base.en-q5_1.bin":        "q5_1",
		"/models/ggml-large-v3-turbo-q8_0.bin": "q8_0",
		"/models/GGML-TINY-F32.BIN":            "f32",
		"/models/custom.gguf":                  "f16",
	}
	for path, want := range tests {
		assert.Equal(t, want, WeightType(path), path)
	}
}
