//go:build llama

package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

// llamaAdapter holds global config used to initialize a model instance.
type llamaAdapter struct {
	ctxSize   int
	threads   int
	gpuLayers int
}

// NewLlamaAdapter returns the in-process go-llama.cpp adapter.
func NewLlamaAdapter(ctxSize, threads, gpuLayers int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads, gpuLayers: gpuLayers}
}

// llamaSession owns the loaded model.
type llamaSession struct {
	model      *llama.LLama
	threads    int
	baseParams InferParams
}

type loadResult struct {
	model *llama.LLama
	err   error
}

// Start loads the model. The cgo load cannot be interrupted, so it runs on its
// own goroutine; on cancellation Start returns at once and the model is freed
// when the load finishes.
func (a *llamaAdapter) Start(ctx context.Context, modelPath string, params InferParams) (InferSession, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{
		llama.SetContext(a.ctxSize),
	}
	if a.gpuLayers > 0 {
		mo = append(mo, llama.SetGPULayers(a.gpuLayers))
	}
	done := make(chan loadResult, 1)
	go func() {
		m, err := llama.New(modelPath, mo...)
		done <- loadResult{model: m, err: err}
	}()
	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("load model %s: %w", modelPath, res.err)
		}
		return &llamaSession{model: res.model, threads: a.threads, baseParams: params}, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.model != nil {
				res.model.Free()
			}
		}()
		return nil, ctx.Err()
	}
}

func (s *llamaSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	if s.model == nil {
		return FinalResult{}, errors.New("llama model not initialized")
	}

	completionTokens := 0
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		completionTokens++
		if err := onToken(tok); err != nil {
			return false
		}
		return true
	})
	po := mapInferParamsToPredictOptions(s.baseParams, s.threads)
	// Blocks until done or the callback returns false.
	text, err := s.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}
	if ctx.Err() != nil {
		return FinalResult{}, ctx.Err()
	}
	finish := "stop"
	if s.baseParams.MaxTokens > 0 && completionTokens >= s.baseParams.MaxTokens {
		finish = "length"
	}
	return FinalResult{
		Content:      text,
		Usage:        Usage{CompletionTokens: completionTokens, TotalTokens: completionTokens},
		FinishReason: finish,
	}, nil
}

func (s *llamaSession) Close() error {
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// pf returns *v when set, def otherwise. Zero is a valid setting.
func pf(v *float32, def float32) float32 {
	if v != nil {
		return *v
	}
	return def
}

// mapInferParamsToPredictOptions converts our adapter params into go-llama.cpp options.
func mapInferParamsToPredictOptions(params InferParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(pf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(pf(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != nil {
		po = append(po, llama.SetSeed(*params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
