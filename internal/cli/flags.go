package cli

import (
	"github.com/spf13/pflag"

	"roastcheck/internal/config"
)

// settings holds flag destinations for one command. Only flags the user
// actually set are layered over the resolved configuration.
type settings struct {
	configPath string
	envFile    string
	dryRun     bool
	flags      config.Config

	// Pointer-valued config fields bind through these.
	temperature float64
	topP        float64
	seed        int
}

type fieldCopier func(dst *config.Config, st *settings)

var flagFields = map[string]fieldCopier{
	"models-dir":     func(d *config.Config, s *settings) { d.ModelsDir = s.flags.ModelsDir },
	"model":          func(d *config.Config, s *settings) { d.Model = s.flags.Model },
	"backend":        func(d *config.Config, s *settings) { d.Backend = s.flags.Backend },
	"max-tokens":     func(d *config.Config, s *settings) { d.MaxTokens = s.flags.MaxTokens },
	"temperature":    func(d *config.Config, s *settings) { d.Temperature = &s.temperature },
	"top-p":          func(d *config.Config, s *settings) { d.TopP = &s.topP },
	"top-k":          func(d *config.Config, s *settings) { d.TopK = s.flags.TopK },
	"seed":           func(d *config.Config, s *settings) { d.Seed = &s.seed },
	"repeat-penalty": func(d *config.Config, s *settings) { d.RepeatPenalty = s.flags.RepeatPenalty },
	"stop":           func(d *config.Config, s *settings) { d.Stop = s.flags.Stop },
	"ctx-size":       func(d *config.Config, s *settings) { d.CtxSize = s.flags.CtxSize },
	"threads":        func(d *config.Config, s *settings) { d.Threads = s.flags.Threads },
	"gpu-layers":     func(d *config.Config, s *settings) { d.GPULayers = s.flags.GPULayers },
	"llama-bin":      func(d *config.Config, s *settings) { d.LlamaBin = s.flags.LlamaBin },
	"ready-timeout":  func(d *config.Config, s *settings) { d.ReadyTimeoutSeconds = s.flags.ReadyTimeoutSeconds },
	"server-url":     func(d *config.Config, s *settings) { d.ServerURL = s.flags.ServerURL },
	"timeout":        func(d *config.Config, s *settings) { d.TimeoutSeconds = s.flags.TimeoutSeconds },
	"template":       func(d *config.Config, s *settings) { d.PromptTemplate = s.flags.PromptTemplate },
	"sanitize-html":  func(d *config.Config, s *settings) { d.SanitizeHTML = s.flags.SanitizeHTML },
	"log-level":      func(d *config.Config, s *settings) { d.LogLevel = s.flags.LogLevel },
	"log-format":     func(d *config.Config, s *settings) { d.LogFormat = s.flags.LogFormat },
	"metrics-file":   func(d *config.Config, s *settings) { d.MetricsFile = s.flags.MetricsFile },
}

func (st *settings) bindSource(fs *pflag.FlagSet) {
	fs.StringVar(&st.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	fs.StringVar(&st.envFile, "env-file", config.DefaultDotEnv, "Dotenv file read before ROASTCHECK_* variables")
	fs.StringVar(&st.flags.ModelsDir, "models-dir", "", "Directory to scan for *.gguf model files (default ./models)")
	fs.StringVar(&st.flags.Model, "model", "", "Model file name inside models-dir")
	fs.StringVar(&st.flags.Backend, "backend", "", "Inference backend: llama|server|spawn (default llama)")
	fs.StringVar(&st.flags.ServerURL, "server-url", "", "Base URL of a running llama.cpp server (backend=server)")
	fs.StringVar(&st.flags.LlamaBin, "llama-bin", "", "Path to the llama-server binary (backend=spawn)")
	fs.StringVar(&st.flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error|disabled (default warn)")
	fs.StringVar(&st.flags.LogFormat, "log-format", "", "Log format: console|json (default console)")
}

func (st *settings) bindGeneration(fs *pflag.FlagSet) {
	fs.IntVar(&st.flags.MaxTokens, "max-tokens", 0, "Maximum tokens to generate (default 100)")
	fs.Float64Var(&st.temperature, "temperature", 0, "Sampling temperature, 0 for greedy (default: backend default)")
	fs.Float64Var(&st.topP, "top-p", 0, "Nucleus sampling probability (default: backend default)")
	fs.IntVar(&st.flags.TopK, "top-k", 0, "Top-k sampling")
	fs.IntVar(&st.seed, "seed", 0, "Sampling seed (default: random)")
	fs.Float64Var(&st.flags.RepeatPenalty, "repeat-penalty", 0, "Repeat penalty")
	fs.StringSliceVar(&st.flags.Stop, "stop", nil, "Stop sequence (repeatable)")
	fs.IntVar(&st.flags.CtxSize, "ctx-size", 0, "Context size in tokens (default 2048)")
	fs.IntVar(&st.flags.Threads, "threads", 0, "CPU threads (0 = runtime default)")
	fs.IntVar(&st.flags.GPULayers, "gpu-layers", 0, "Layers to offload to the GPU")
	fs.IntVar(&st.flags.ReadyTimeoutSeconds, "ready-timeout", 0, "Seconds to wait for a spawned llama-server")
	fs.IntVar(&st.flags.TimeoutSeconds, "timeout", 0, "Generation timeout in seconds (0 = none)")
	fs.StringVar(&st.flags.PromptTemplate, "template", "", "Prompt template override using {{.TargetUsername}} and {{.TargetMessage}}")
	fs.BoolVar(&st.flags.SanitizeHTML, "sanitize-html", false, "Escape < and > in input fields before rendering")
	fs.StringVar(&st.flags.MetricsFile, "metrics-file", "", "Write run metrics to this file in textfile format")
	fs.BoolVar(&st.dryRun, "dry-run", false, "Print the rendered prompt instead of calling the model")
}

// resolve layers the flags the user set over file and environment configuration.
func (st *settings) resolve(fs *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Resolve(st.configPath, st.envFile)
	if err != nil {
		return cfg, err
	}
	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := flagFields[f.Name]; ok {
			apply(&cfg, st)
		}
	})
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
