package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

const (
	DefaultFFmpeg  = "ffmpeg"
	DefaultFFprobe = "ffprobe"

	whisperSampleRate = 16000
)

// FFProbeOutput is the subset of `ffprobe -show_streams` we read
type FFProbeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate int    `json:"sample_rate,string"`
	} `json:"streams"`
}

// GetAudioDuration returns the duration in whole seconds, rounded
func GetAudioDuration(ctx context.Context, ffprobePath, filePath string) (int, error) {
	cmd := exec.CommandContext(ctx, binaryOr(ffprobePath, DefaultFFprobe),
		"-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseDuration(string(output))
}

func parseDuration(output string) (int, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(output), 64)
	if err != nil {
		return 0, err
	}
	return int(math.Round(seconds)), nil
}

// Is16kHzWavFile reports whether filePath already holds 16 kHz PCM audio
func Is16kHzWavFile(ctx context.Context, ffprobePath, filePath string) (bool, error) {
	cmd := exec.CommandContext(ctx, binaryOr(ffprobePath, DefaultFFprobe),
		"-v", "quiet", "-print_format", "json", "-show_streams", filePath)
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("ffprobe failed: %w", err)
	}
	return is16kHzPCM(output)
}

func is16kHzPCM(output []byte) (bool, error) {
	var probe FFProbeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return false, err
	}

	for _, stream := range probe.Streams {
		if stream.CodecType == "audio" && stream.CodecName == "pcm_s16le" && stream.SampleRate == whisperSampleRate {
			return true, nil
		}
	}
	return false, nil
}

// ConvertTo16kHzWav re-encodes inputPath as 16 kHz mono PCM at outputPath
func ConvertTo16kHzWav(ctx context.Context, ffmpegPath, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, binaryOr(ffmpegPath, DefaultFFmpeg),
		"-nostdin", "-y", "-i", inputPath,
		"-vn", "-acodec", "pcm_s16le", "-ar", strconv.Itoa(whisperSampleRate), "-ac", "1",
		outputPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("FFmpeg error: %w, stderr: %s", err, lastLines(stderr.String(), 5))
	}
	return nil
}

func binaryOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}

// lastLines keeps error messages short; ffmpeg prints its banner first
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
