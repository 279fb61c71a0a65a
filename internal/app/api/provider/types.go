package provider

import (
	"path/filepath"
	"strings"
	"time"
)

// AudioFormat defines supported audio formats
type AudioFormat string

const (
	FormatWAV  AudioFormat = "wav"
	FormatMP3  AudioFormat = "mp3"
	FormatM4A  AudioFormat = "m4a"
	FormatFLAC AudioFormat = "flac"
	FormatOGG  AudioFormat = "ogg"
	FormatWEBM AudioFormat = "webm"
)

// ProviderType defines the type of transcription provider
type ProviderType string

const (
	ProviderTypeLocal  ProviderType = "local"
	ProviderTypeRemote ProviderType = "remote"
)

// TranscriptionRequest is what the gateway hands to a provider
type TranscriptionRequest struct {
	// InputFilePath is the staged upload on local disk
	InputFilePath string `json:"input_file_path"`

	// ScratchDir receives intermediate files (conversions, model output).
	// It is removed together with the staged upload.
	ScratchDir string `json:"scratch_dir,omitempty"`

	// Language hint; empty means provider default
	Language string `json:"language,omitempty"`
}

// TranscriptionResponse represents the response from a transcription provider
type TranscriptionResponse struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language,omitempty"`
	Segments []TranscriptionSegment `json:"segments,omitempty"`

	ProviderMetadata map[string]interface{} `json:"provider_metadata,omitempty"`
	ProcessingTime   time.Duration          `json:"processing_time,omitempty"`
	ModelUsed        string                 `json:"model_used,omitempty"`
}

// TranscriptionSegment represents a time-segmented piece of transcription
type TranscriptionSegment struct {
	ID    int     `json:"id"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ProviderInfo contains metadata about a transcription provider
type ProviderInfo struct {
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Type        ProviderType `json:"type"`

	SupportedFormats []AudioFormat `json:"supported_formats"`
	MaxFileSizeMB    int           `json:"max_file_size_mb,omitempty"`

	RequiresInternet bool `json:"requires_internet"`
	RequiresAPIKey   bool `json:"requires_api_key"`
	RequiresBinary   bool `json:"requires_binary"`

	DefaultModel string `json:"default_model,omitempty"`
}

// GetAudioFormatFromFilename extracts audio format from filename
func GetAudioFormatFromFilename(filename string) AudioFormat {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "wav":
		return FormatWAV
	case "mp3":
		return FormatMP3
	case "m4a":
		return FormatM4A
	case "flac":
		return FormatFLAC
	case "ogg", "oga", "opus":
		return FormatOGG
	case "webm":
		return FormatWEBM
	default:
		return ""
	}
}
