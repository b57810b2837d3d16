package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"roastcheck/internal/config"
	"roastcheck/internal/manager"
	"roastcheck/internal/metrics"
	"roastcheck/internal/prompt"
	"roastcheck/internal/registry"
	"roastcheck/pkg/types"
)

// Options carries the process streams and test hooks for a command tree.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Adapter replaces the backend adapter chosen from configuration.
	Adapter manager.InferenceAdapter
}

// buildManager scans the models directory and wires a Manager for cfg.
// The server backend names models remotely, so a missing directory is fine there.
func buildManager(cfg config.Config, pub manager.EventPublisher, override manager.InferenceAdapter) (*manager.Manager, error) {
	var reg []types.Model
	models, err := registry.LoadDir(cfg.ModelsDir)
	switch {
	case err == nil:
		reg = models
	case cfg.Backend != manager.BackendServer:
		return nil, fmt.Errorf("load models from %s: %w", cfg.ModelsDir, err)
	}

	m := manager.NewWithConfig(manager.ManagerConfig{
		Registry:     reg,
		DefaultModel: cfg.Model,
		Backend:      cfg.Backend,
		Publisher:    pub,
		Params: manager.InferParams{
			Temperature:   toFloat32(cfg.Temperature),
			TopP:          toFloat32(cfg.TopP),
			TopK:          cfg.TopK,
			MaxTokens:     cfg.MaxTokens,
			Stop:          cfg.Stop,
			Seed:          cfg.Seed,
			RepeatPenalty: float32(cfg.RepeatPenalty),
		},
		LlamaCtx:       cfg.CtxSize,
		LlamaThreads:   cfg.Threads,
		LlamaNGL:       cfg.GPULayers,
		LlamaBin:       cfg.LlamaBin,
		LlamaHost:      cfg.LlamaHost,
		LlamaPortStart: cfg.LlamaPortStart,
		LlamaPortEnd:   cfg.LlamaPortEnd,
		LlamaExtraArgs: cfg.LlamaExtraArgs,
		ReadyTimeout:   time.Duration(cfg.ReadyTimeoutSeconds) * time.Second,
		ServerURL:      cfg.ServerURL,
		ServerAPIKey:   cfg.ServerAPIKey,
	})
	if override != nil {
		m.SetInferenceAdapter(override)
	}
	return m, nil
}

func toFloat32(v *float64) *float32 {
	if v == nil {
		return nil
	}
	return lo.ToPtr(float32(*v))
}

// runFilter is the whole life of one factcheck or roast invocation:
// decode stdin, render the prompt, generate, print. stdout is written only
// once the completion is complete.
func runFilter(ctx context.Context, task prompt.Task, cfg config.Config, dryRun bool, opts *Options) (err error) {
	log := newLogger(cfg, opts.Stderr, uuid.NewString(), task.String())
	rec := metrics.New()
	outcome := metrics.OutcomeError
	defer func() {
		if err != nil {
			log.Error().Err(err).Msg("invocation failed")
		}
		rec.ObserveInvocation(task.String(), outcome)
		if werr := rec.WriteTextfile(cfg.MetricsFile); werr != nil {
			log.Warn().Err(werr).Str("path", cfg.MetricsFile).Msg("write metrics")
		}
	}()

	tmpl, err := prompt.New(task, cfg.PromptTemplate, prompt.WithSanitizeHTML(cfg.SanitizeHTML))
	if err != nil {
		return err
	}
	target, err := prompt.Decode(opts.Stdin)
	if err != nil {
		return err
	}
	log.Debug().
		Str("targetUsername", target.TargetUsername).
		Str("targetMessage", target.TargetMessage).
		Msg("input")

	text, err := tmpl.Render(target)
	if err != nil {
		return err
	}
	if dryRun {
		outcome = metrics.OutcomeDryRun
		_, err = fmt.Fprintln(opts.Stdout, text)
		return err
	}

	m, err := buildManager(cfg, eventLogger(log), opts.Adapter)
	if err != nil {
		return err
	}
	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	res, err := m.Complete(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("generation timed out after %ds: %w", cfg.TimeoutSeconds, err)
		}
		return err
	}
	rec.ObserveGeneration(task.String(), m.Backend(), res.Duration, len(res.Text))
	log.Info().
		Str("model", res.ModelID).
		Str("finish_reason", res.FinishReason).
		Int("completion_tokens", res.Usage.CompletionTokens).
		Dur("duration", res.Duration).
		Msg("completion")

	if _, err = fmt.Fprintln(opts.Stdout, res.Text); err != nil {
		return err
	}
	outcome = metrics.OutcomeOK
	return nil
}
