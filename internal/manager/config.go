package manager

import (
	"time"

	"roastcheck/pkg/types"
)

// Backend names accepted by ManagerConfig.Backend.
const (
	BackendLlama  = "llama"
	BackendServer = "server"
	BackendSpawn  = "spawn"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	DefaultModelID        = "mistral-7b-instruct-v0.1.Q4_0.gguf"
	DefaultMaxTokens      = 100
	defaultConnectTimeout = 5 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry     []types.Model
	DefaultModel string
	Backend      string
	Params       InferParams
	Publisher    EventPublisher

	// In-process and spawned llama.cpp
	LlamaCtx     int
	LlamaThreads int
	LlamaNGL     int

	// Spawned llama-server
	LlamaBin       string
	LlamaHost      string
	LlamaPortStart int
	LlamaPortEnd   int
	LlamaExtraArgs []string
	ReadyTimeout   time.Duration

	// External llama-server
	ServerURL      string
	ServerAPIKey   string
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModelID
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendLlama
	}
	if cfg.Params.MaxTokens <= 0 {
		cfg.Params.MaxTokens = DefaultMaxTokens
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	m := &Manager{
		registry:     append([]types.Model(nil), cfg.Registry...),
		defaultModel: cfg.DefaultModel,
		backend:      cfg.Backend,
		params:       cfg.Params,
		publisher:    cfg.Publisher,
		cfg:          cfg,
	}
	switch cfg.Backend {
	case BackendServer:
		m.adapter = NewLlamaServerAdapter(cfg.ServerURL, cfg.ServerAPIKey, cfg.RequestTimeout, cfg.ConnectTimeout)
	case BackendSpawn:
		m.adapter = NewLlamaSpawnAdapter(cfg)
	case BackendLlama:
		m.adapter = NewLlamaAdapter(cfg.LlamaCtx, cfg.LlamaThreads, cfg.LlamaNGL)
	}
	return m
}
