package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Provider names used as keys in the providers section and as the value of
// gateway.default_provider.
const (
	ProviderAssemblyAI = "assemblyai"
	ProviderWhisperCpp = "whisper_cpp"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
)

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Log       LogConfig       `yaml:"log"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              string        `yaml:"port" validate:"required,numeric"`
	ReadTimeout       time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	Environment       string        `yaml:"environment" validate:"oneof=development production test"`
	MaxUploadMB       int64         `yaml:"max_upload_mb" validate:"gt=0"`
	MultipartMemoryMB int64         `yaml:"multipart_memory_mb" validate:"gt=0"`
}

// CORSConfig lists the cross-origin policy applied to every route
type CORSConfig struct {
	AllowOrigins     []string      `yaml:"allow_origins"`
	AllowMethods     []string      `yaml:"allow_methods"`
	AllowHeaders     []string      `yaml:"allow_headers"`
	ExposeHeaders    []string      `yaml:"expose_headers"`
	AllowCredentials bool          `yaml:"allow_credentials"`
	MaxAge           time.Duration `yaml:"max_age" validate:"gte=0"`
}

// GatewayConfig controls request scheduling and temporary storage
type GatewayConfig struct {
	DefaultProvider string        `yaml:"default_provider" validate:"required"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gt=0"`
	MaxConcurrent   int           `yaml:"max_concurrent" validate:"gte=1"`
	MaxWait         time.Duration `yaml:"max_wait" validate:"gte=0"`
	TempDir         string        `yaml:"temp_dir"`
	OrphanMaxAge    time.Duration `yaml:"orphan_max_age" validate:"gte=0"`
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// ProvidersConfig holds one section per transcription backend
type ProvidersConfig struct {
	AssemblyAI AssemblyAIConfig `yaml:"assemblyai"`
	WhisperCpp WhisperCppConfig `yaml:"whisper_cpp"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
}

// RetryConfig bounds retries of transient connectivity failures
type RetryConfig struct {
	MaxAttempts    uint          `yaml:"max_attempts" validate:"gte=1,lte=10"`
	InitialBackoff time.Duration `yaml:"initial_backoff" validate:"gt=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" validate:"gtefield=InitialBackoff"`
}

// PollConfig bounds the job status polling loop
type PollConfig struct {
	Interval    time.Duration `yaml:"interval" validate:"gt=0"`
	MaxInterval time.Duration `yaml:"max_interval" validate:"gtefield=Interval"`
	Multiplier  float64       `yaml:"multiplier" validate:"gte=1"`
	MaxAttempts uint          `yaml:"max_attempts" validate:"gte=1"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// AssemblyAIConfig configures the remote job-polling backend
type AssemblyAIConfig struct {
	Enabled      bool          `yaml:"enabled"`
	APIKey       string        `yaml:"api_key" validate:"required_if=Enabled true"`
	BaseURL      string        `yaml:"base_url" validate:"required,url"`
	LanguageCode string        `yaml:"language_code"`
	HTTPTimeout  time.Duration `yaml:"http_timeout" validate:"gt=0"`
	Retry        RetryConfig   `yaml:"retry"`
	Poll         PollConfig    `yaml:"poll"`
}

// WhisperCppConfig configures the local whisper.cpp backend.
//
// Device "cpu" disables GPU offload; "cuda" and "auto" leave it to how the
// binary was built. whisper.cpp computes in the model file's weight format,
// so ComputeType is checked against the file at load: float16 needs plain
// ggml-*.bin or -f16, float32 needs -f32, int8 needs a -qN_M quantized file.
type WhisperCppConfig struct {
	Enabled       bool   `yaml:"enabled"`
	BinaryPath    string `yaml:"binary_path" validate:"required_if=Enabled true"`
	ModelPath     string `yaml:"model_path" validate:"required_if=Enabled true"`
	ModelSize     string `yaml:"model_size" validate:"oneof=tiny base small medium large large-v2 large-v3 large-v3-turbo"`
	Device        string `yaml:"device" validate:"oneof=cpu cuda auto"`
	ComputeType   string `yaml:"compute_type" validate:"oneof=default float32 float16 int8"`
	BeamSize      int    `yaml:"beam_size" validate:"gte=1,lte=16"`
	Language      string `yaml:"language"`
	Threads       int    `yaml:"threads" validate:"gte=0"`
	MaxConcurrent int    `yaml:"max_concurrent" validate:"gte=1"`
	ConvertAudio  bool   `yaml:"convert_audio"`
	FFmpegPath    string `yaml:"ffmpeg_path"`
	FFprobePath   string `yaml:"ffprobe_path"`
}

// OpenAIConfig configures the OpenAI Whisper API backend
type OpenAIConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key" validate:"required_if=Enabled true"`
	BaseURL  string `yaml:"base_url" validate:"omitempty,url"`
	Model    string `yaml:"model" validate:"required"`
	Language string `yaml:"language"`
}

// GeminiConfig configures the Gemini audio-understanding backend
type GeminiConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key" validate:"required_if=Enabled true"`
	Model   string `yaml:"model" validate:"required"`
	Prompt  string `yaml:"prompt" validate:"required"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8000",
			ReadTimeout:       5 * time.Minute,
			WriteTimeout:      11 * time.Minute,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   30 * time.Second,
			Environment:       "development",
			MaxUploadMB:       100,
			MultipartMemoryMB: 8,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposeHeaders: []string{
				"X-Request-ID",
			},
			MaxAge: time.Hour,
		},
		Gateway: GatewayConfig{
			DefaultProvider: ProviderAssemblyAI,
			RequestTimeout:  10 * time.Minute,
			MaxConcurrent:   16,
			MaxWait:         5 * time.Second,
			TempDir:         filepath.Join(os.TempDir(), "audio-transcriber"),
			OrphanMaxAge:    time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
		Providers: ProvidersConfig{
			AssemblyAI: AssemblyAIConfig{
				Enabled:      true,
				BaseURL:      "https://api.assemblyai.com",
				LanguageCode: "en_us",
				HTTPTimeout:  2 * time.Minute,
				Retry: RetryConfig{
					MaxAttempts:    3,
					InitialBackoff: 500 * time.Millisecond,
					MaxBackoff:     5 * time.Second,
				},
				Poll: PollConfig{
					Interval:    3 * time.Second,
					MaxInterval: 15 * time.Second,
					Multiplier:  1.5,
					MaxAttempts: 120,
					Timeout:     9 * time.Minute,
				},
			},
			WhisperCpp: WhisperCppConfig{
				ModelSize:     "base",
				Device:        "cpu",
				ComputeType:   "default",
				BeamSize:      5,
				MaxConcurrent: 1,
				ConvertAudio:  true,
				FFmpegPath:    "ffmpeg",
				FFprobePath:   "ffprobe",
			},
			OpenAI: OpenAIConfig{
				Model: "whisper-1",
			},
			Gemini: GeminiConfig{
				Model:  "gemini-2.5-flash",
				Prompt: "Generate a verbatim transcript of the speech in this audio. Return only the transcript text.",
			},
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// ${VAR} references keep secrets out of the file
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"TRANSCRIBER_HOST", &cfg.Server.Host},
		{"TRANSCRIBER_PORT", &cfg.Server.Port},
		{"TRANSCRIBER_ENV", &cfg.Server.Environment},
		{"TRANSCRIBER_DEFAULT_PROVIDER", &cfg.Gateway.DefaultProvider},
		{"TRANSCRIBER_TEMP_DIR", &cfg.Gateway.TempDir},
		{"TRANSCRIBER_LOG_LEVEL", &cfg.Log.Level},
		{"ASSEMBLYAI_API_KEY", &cfg.Providers.AssemblyAI.APIKey},
		{"OPENAI_API_KEY", &cfg.Providers.OpenAI.APIKey},
		{"GEMINI_API_KEY", &cfg.Providers.Gemini.APIKey},
		{"WHISPER_CPP_BINARY", &cfg.Providers.WhisperCpp.BinaryPath},
		{"WHISPER_CPP_MODEL", &cfg.Providers.WhisperCpp.ModelPath},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}

	if v := strings.TrimSpace(os.Getenv("TRANSCRIBER_CORS_ORIGINS")); v != "" {
		cfg.CORS.AllowOrigins = splitList(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// EnabledProviders returns the names of enabled providers in a stable order
func (c *Config) EnabledProviders() []string {
	var names []string
	if c.Providers.AssemblyAI.Enabled {
		names = append(names, ProviderAssemblyAI)
	}
	if c.Providers.WhisperCpp.Enabled {
		names = append(names, ProviderWhisperCpp)
	}
	if c.Providers.OpenAI.Enabled {
		names = append(names, ProviderOpenAI)
	}
	if c.Providers.Gemini.Enabled {
		names = append(names, ProviderGemini)
	}
	return names
}

// IsEnabled reports whether the named provider is enabled
func (c *Config) IsEnabled(name string) bool {
	for _, n := range c.EnabledProviders() {
		if n == name {
			return true
		}
	}
	return false
}

// MaxUploadBytes returns the upload cap in bytes
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// MultipartMemoryBytes is how much of a multipart body is held in memory
// before file parts spill to disk
func (c *Config) MultipartMemoryBytes() int64 {
	return c.Server.MultipartMemoryMB << 20
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and cross-section rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	if len(c.EnabledProviders()) == 0 {
		return fmt.Errorf("at least one provider must be enabled")
	}
	if !c.IsEnabled(c.Gateway.DefaultProvider) {
		return fmt.Errorf("default provider %q is not enabled", c.Gateway.DefaultProvider)
	}
	if c.Server.WriteTimeout <= c.Gateway.RequestTimeout {
		return fmt.Errorf("server.write_timeout (%s) must exceed gateway.request_timeout (%s)",
			c.Server.WriteTimeout, c.Gateway.RequestTimeout)
	}
	return validateAPIKeys(c)
}
