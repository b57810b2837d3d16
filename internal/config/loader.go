package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. ROASTCHECK_MAX_TOKENS.
const EnvPrefix = "ROASTCHECK"

// DefaultDotEnv is the dotenv file read by Resolve when none is given.
const DefaultDotEnv = ".env"

// Config holds runtime parameters for one invocation.
// Keys absent from a file or the environment leave the defaults in place.
// Environment names are derived from field names: ServerURL reads ROASTCHECK_SERVER_URL.
type Config struct {
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir" split_words:"true" validate:"required"`
	Model     string `json:"model" yaml:"model" toml:"model" split_words:"true" validate:"required"`
	Backend   string `json:"backend" yaml:"backend" toml:"backend" split_words:"true" validate:"oneof=llama server spawn"`

	// Sampling knobs left nil use the backend default; 0 is a real setting.
	MaxTokens     int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens" split_words:"true" validate:"min=1,max=4096"`
	Temperature   *float64 `json:"temperature" yaml:"temperature" toml:"temperature" split_words:"true" validate:"omitempty,gte=0,lte=2"`
	TopP          *float64 `json:"top_p" yaml:"top_p" toml:"top_p" split_words:"true" validate:"omitempty,gte=0,lte=1"`
	TopK          int      `json:"top_k" yaml:"top_k" toml:"top_k" split_words:"true" validate:"gte=0"`
	RepeatPenalty float64  `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty" split_words:"true" validate:"gte=0"`
	Seed          *int     `json:"seed" yaml:"seed" toml:"seed" split_words:"true"`
	Stop          []string `json:"stop" yaml:"stop" toml:"stop" split_words:"true"`

	CtxSize   int `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size" split_words:"true" validate:"gte=0"`
	Threads   int `json:"threads" yaml:"threads" toml:"threads" split_words:"true" validate:"gte=0"`
	GPULayers int `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers" split_words:"true" validate:"gte=0"`

	LlamaBin            string   `json:"llama_bin" yaml:"llama_bin" toml:"llama_bin" split_words:"true"`
	LlamaHost           string   `json:"llama_host" yaml:"llama_host" toml:"llama_host" split_words:"true" validate:"omitempty,hostname|ip"`
	LlamaPortStart      int      `json:"llama_port_start" yaml:"llama_port_start" toml:"llama_port_start" split_words:"true" validate:"gte=0,lte=65535"`
	LlamaPortEnd        int      `json:"llama_port_end" yaml:"llama_port_end" toml:"llama_port_end" split_words:"true" validate:"gte=0,lte=65535"`
	LlamaExtraArgs      []string `json:"llama_extra_args" yaml:"llama_extra_args" toml:"llama_extra_args" split_words:"true"`
	ReadyTimeoutSeconds int      `json:"ready_timeout_seconds" yaml:"ready_timeout_seconds" toml:"ready_timeout_seconds" split_words:"true" validate:"gte=0"`

	ServerURL    string `json:"server_url" yaml:"server_url" toml:"server_url" split_words:"true" validate:"omitempty,url"`
	ServerAPIKey string `json:"server_api_key" yaml:"server_api_key" toml:"server_api_key" split_words:"true"`

	// 0 disables the generation timeout.
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds" split_words:"true" validate:"gte=0"`

	PromptTemplate string `json:"prompt_template" yaml:"prompt_template" toml:"prompt_template" split_words:"true"`
	SanitizeHTML   bool   `json:"sanitize_html" yaml:"sanitize_html" toml:"sanitize_html" split_words:"true"`

	LogLevel    string `json:"log_level" yaml:"log_level" toml:"log_level" split_words:"true" validate:"oneof=debug info warn error disabled"`
	LogFormat   string `json:"log_format" yaml:"log_format" toml:"log_format" split_words:"true" validate:"oneof=console json"`
	MetricsFile string `json:"metrics_file" yaml:"metrics_file" toml:"metrics_file" split_words:"true"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		ModelsDir: "./models",
		Model:     "mistral-7b-instruct-v0.1.Q4_0.gguf",
		Backend:   "llama",
		MaxTokens: 100,
		CtxSize:   2048,
		LogLevel:  "warn",
		LogFormat: "console",
	}
}

// Load reads a configuration file on top of Defaults, based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Defaults()
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	case ".json":
		err = json.Unmarshal(b, cfg)
	case ".toml":
		err = toml.Unmarshal(b, cfg)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Resolve layers the configuration sources, lowest precedence first:
// Defaults, the optional config file at path, the dotenv file (missing is
// fine), then ROASTCHECK_* environment variables. Flags are applied by the caller.
func Resolve(path, dotenv string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if dotenv == "" {
		dotenv = DefaultDotEnv
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load %s: %w", dotenv, err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}
