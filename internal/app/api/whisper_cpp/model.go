package whisper_cpp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/config"
)

const providerName = config.ProviderWhisperCpp

// waitDelay bounds how long Wait blocks on inherited pipes after a kill
const waitDelay = 2 * time.Second

var (
	modelSizes   = []string{"tiny", "base", "small", "medium", "large", "large-v2", "large-v3", "large-v3-turbo"}
	devices      = []string{"cpu", "cuda", "auto"}
	computeTypes = []string{"default", "float32", "float16", "int8"}

	// ggml file suffixes: ggml-base-q5_1.bin, ggml-small.en-q8_0.bin, ggml-tiny-f32.bin
	weightSuffix = regexp.MustCompile(`-(q\d_[0-9k]|f16|f32)\.bin$`)
)

// ModelConfig describes the local model to load
type ModelConfig struct {
	BinaryPath    string
	ModelPath     string
	ModelSize     string
	Device        string
	ComputeType   string
	Threads       int
	MaxConcurrent int
}

// Segment is one timed span of recognised speech
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// ModelHandle is a loaded model. It is shared by every request and bounds
// concurrent invocations with a semaphore.
type ModelHandle struct {
	config     ModelConfig
	binaryPath string
	sem        *semaphore.Weighted
}

// whisper.cpp -oj output, only the fields we read
type outputJSON struct {
	Transcription []outputSegment `json:"transcription"`
}

type outputSegment struct {
	Offsets struct {
		From int64 `json:"from"`
		To   int64 `json:"to"`
	} `json:"offsets"`
	Text string `json:"text"`
}

// LoadModel resolves the binary and model file and validates the decoding
// parameters. It runs once at startup.
func LoadModel(cfg ModelConfig) (*ModelHandle, error) {
	if cfg.ModelSize == "" {
		cfg.ModelSize = "base"
	}
	if cfg.Device == "" {
		cfg.Device = "cpu"
	}
	if cfg.ComputeType == "" {
		cfg.ComputeType = "default"
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}

	if !lo.Contains(modelSizes, cfg.ModelSize) {
		return nil, fmt.Errorf("unsupported model size %q", cfg.ModelSize)
	}
	if !lo.Contains(devices, cfg.Device) {
		return nil, fmt.Errorf("unsupported device %q", cfg.Device)
	}
	if !lo.Contains(computeTypes, cfg.ComputeType) {
		return nil, fmt.Errorf("unsupported compute type %q", cfg.ComputeType)
	}

	binaryPath, err := exec.LookPath(cfg.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp binary not found: %w", err)
	}

	info, err := os.Stat(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp model not found: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("whisper.cpp model path %s is a directory", cfg.ModelPath)
	}
	if weights := WeightType(cfg.ModelPath); !computeTypeMatches(cfg.ComputeType, weights) {
		return nil, fmt.Errorf("compute type %q does not match %s weights of model %s",
			cfg.ComputeType, weights, filepath.Base(cfg.ModelPath))
	}

	return &ModelHandle{
		config:     cfg,
		binaryPath: binaryPath,
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}, nil
}

// WeightType reports the weight format of a ggml model file from its name.
// Unsuffixed ggml models are float16.
func WeightType(modelPath string) string {
	m := weightSuffix.FindStringSubmatch(strings.ToLower(filepath.Base(modelPath)))
	if m == nil {
		return "f16"
	}
	return m[1]
}

// whisper.cpp computes in the model's own weight format, so compute_type
// only selects which model files are acceptable.
func computeTypeMatches(computeType, weights string) bool {
	switch computeType {
	case "float32":
		return weights == "f32"
	case "float16":
		return weights == "f16"
	case "int8":
		return strings.HasPrefix(weights, "q")
	default:
		return true
	}
}

// Config returns the validated model configuration
func (m *ModelHandle) Config() ModelConfig {
	return m.config
}

// Transcribe runs the model over a 16 kHz WAV file. whisper.cpp writes its
// JSON next to the input, so the output shares the input's lifetime.
func (m *ModelHandle) Transcribe(ctx context.Context, path string, beamSize int, language string) ([]Segment, error) {
	outputPrefix := OutputPrefix(path)

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, provider.ContextError(ctx, providerName)
	}
	defer m.sem.Release(1)

	args := m.buildArgs(path, outputPrefix, beamSize, language)
	cmd := exec.CommandContext(ctx, m.binaryPath, args...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := provider.ContextError(ctx, providerName); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, provider.LocalFailure(providerName,
			fmt.Sprintf("whisper.cpp failed: %s", tail(stderr.String())), err)
	}

	raw, err := os.ReadFile(outputPrefix + ".json")
	if err != nil {
		return nil, provider.LocalFailure(providerName, "whisper.cpp produced no output", err)
	}
	return parseSegments(raw)
}

// OutputPrefix is the -of argument used for an input file
func OutputPrefix(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".whisper"
}

func (m *ModelHandle) buildArgs(path, outputPrefix string, beamSize int, language string) []string {
	args := []string{
		"-m", m.config.ModelPath,
		"-f", path,
		"-bs", strconv.Itoa(beamSize),
	}
	if language != "" {
		args = append(args, "-l", language)
	}
	if m.config.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(m.config.Threads))
	}
	if m.config.Device == "cpu" {
		args = append(args, "-ng")
	}
	return append(args, "-np", "-oj", "-of", outputPrefix)
}

func parseSegments(raw []byte) ([]Segment, error) {
	var out outputJSON
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, provider.LocalFailure(providerName, "failed to parse whisper.cpp output", err)
	}

	return lo.Map(out.Transcription, func(s outputSegment, _ int) Segment {
		return Segment{
			Start: time.Duration(s.Offsets.From) * time.Millisecond,
			End:   time.Duration(s.Offsets.To) * time.Millisecond,
			Text:  s.Text,
		}
	}), nil
}

// JoinSegments concatenates segment texts in order. whisper.cpp already
// carries leading spaces in each segment, so no separator is added.
func JoinSegments(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "no output"
	}
	lines := strings.Split(s, "\n")
	return lines[len(lines)-1]
}

// errModelMissing is returned by health checks once the model file vanishes
var errModelMissing = errors.New("whisper.cpp model file is missing")

// Check verifies the binary and model are still in place
func (m *ModelHandle) Check() error {
	if _, err := os.Stat(m.config.ModelPath); err != nil {
		return fmt.Errorf("%w: %v", errModelMissing, err)
	}
	if _, err := exec.LookPath(m.binaryPath); err != nil {
		return fmt.Errorf("whisper.cpp binary unavailable: %w", err)
	}
	return nil
}
