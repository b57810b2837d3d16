package manager

import (
	"context"

	"roastcheck/internal/common/fsutil"
)

// SanityReport describes runtime checks for the configured backend.
type SanityReport struct {
	Backend         string `json:"backend"`
	LlamaBuilt      bool   `json:"llama_built"`
	ModelID         string `json:"model_id"`
	ModelPath       string `json:"model_path,omitempty"`
	ModelFound      bool   `json:"model_found"`
	LlamaBin        string `json:"llama_bin,omitempty"`
	LlamaFound      bool   `json:"llama_found"`
	ServerURL       string `json:"server_url,omitempty"`
	ServerReachable bool   `json:"server_reachable"`
	OK              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
}

// SanityCheck validates that the model and the backend dependencies are available.
// It does not load the model.
func (m *Manager) SanityCheck(ctx context.Context) SanityReport {
	r := SanityReport{Backend: m.backend, LlamaBuilt: llamaBuilt, ModelID: m.defaultModel}
	if mdl, ok := m.getModelByID(m.defaultModel); ok {
		r.ModelPath = mdl.Path
		r.ModelFound = fsutil.IsRegularFile(mdl.Path)
	}

	switch m.backend {
	case BackendLlama:
		switch {
		case !llamaBuilt:
			r.Error = "llama support not built (rebuild with -tags llama)"
		case !r.ModelFound:
			r.Error = ErrModelNotFound(m.defaultModel).Error()
		}
	case BackendSpawn:
		bin := resolveLlamaBin(m.cfg.LlamaBin)
		r.LlamaBin = bin
		r.LlamaFound = bin != "" && fsutil.IsRegularFile(bin)
		switch {
		case !r.LlamaFound:
			r.Error = "llama-server not found"
		case !r.ModelFound:
			r.Error = ErrModelNotFound(m.defaultModel).Error()
		}
	case BackendServer:
		r.ServerURL = m.cfg.ServerURL
		sa, ok := m.adapter.(*llamaServerAdapter)
		if !ok {
			r.Error = "server adapter not configured"
			break
		}
		if err := sa.ping(ctx); err != nil {
			r.Error = "server unreachable: " + err.Error()
			break
		}
		r.ServerReachable = true
	default:
		r.Error = "unknown backend: " + m.backend
	}
	r.OK = r.Error == ""
	return r
}
