package manager

import (
	"roastcheck/pkg/types"
)

// Manager resolves the configured model and runs completions against the
// configured backend. It holds no state between calls.
type Manager struct {
	registry     []types.Model
	defaultModel string
	backend      string
	params       InferParams
	adapter      InferenceAdapter
	publisher    EventPublisher
	cfg          ManagerConfig
}

// SetInferenceAdapter replaces the backend adapter.
func (m *Manager) SetInferenceAdapter(a InferenceAdapter) { m.adapter = a }

// Backend returns the configured backend name.
func (m *Manager) Backend() string { return m.backend }

// ModelID returns the id of the model completions run against.
func (m *Manager) ModelID() string { return m.defaultModel }

// Params returns a copy of the generation parameters.
func (m *Manager) Params() InferParams {
	p := m.params
	p.Stop = append([]string(nil), m.params.Stop...)
	return p
}

// ListModels returns a copy of the registry.
func (m *Manager) ListModels() []types.Model {
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}
