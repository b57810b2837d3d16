package manager

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Completion is the outcome of one successful generation.
type Completion struct {
	ModelID      string
	Text         string
	FinishReason string
	Usage        Usage
	Duration     time.Duration
}

// Complete runs one blocking generation for prompt and returns the whole
// completion with surrounding whitespace removed. Tokens are buffered, so
// callers never observe partial output. Nothing is retried.
func (m *Manager) Complete(ctx context.Context, prompt string) (Completion, error) {
	if m.adapter == nil {
		return Completion{}, ErrDependencyUnavailable(fmt.Sprintf("no inference adapter for backend %q", m.backend))
	}
	ref, err := m.modelRef()
	if err != nil {
		return Completion{}, err
	}

	start := time.Now()
	sess, err := m.adapter.Start(ctx, ref, m.Params())
	if err != nil {
		return Completion{}, fmt.Errorf("start %s session for %s: %w", m.backend, m.defaultModel, err)
	}
	defer func() { _ = sess.Close() }()

	var b strings.Builder
	onTok := func(tok string) error {
		b.WriteString(tok)
		return nil
	}
	final, err := sess.Generate(ctx, prompt, onTok)
	if err != nil {
		return Completion{}, generationFailedError{err: err}
	}
	content := final.Content
	if content == "" {
		content = b.String()
	}
	c := Completion{
		ModelID:      m.defaultModel,
		Text:         strings.TrimSpace(content),
		FinishReason: final.FinishReason,
		Usage:        final.Usage,
		Duration:     time.Since(start),
	}
	m.publisher.Publish(Event{Name: "generate_done", ModelID: m.defaultModel, Fields: map[string]any{
		"backend":       m.backend,
		"duration_ms":   c.Duration.Milliseconds(),
		"chars":         len(c.Text),
		"finish_reason": c.FinishReason,
	}})
	if c.Text == "" {
		return Completion{}, ErrEmptyCompletion
	}
	return c, nil
}

// modelRef resolves what the adapter is started with: the file path for local
// runtimes, the model id for an external server. A server may serve models
// that are not on local disk, so an unknown id is passed through.
func (m *Manager) modelRef() (string, error) {
	mdl, ok := m.getModelByID(m.defaultModel)
	if m.backend == BackendServer {
		if ok {
			return mdl.ID, nil
		}
		return m.defaultModel, nil
	}
	if !ok || strings.TrimSpace(mdl.Path) == "" {
		return "", ErrModelNotFound(m.defaultModel)
	}
	return mdl.Path, nil
}
