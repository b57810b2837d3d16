//go:build !llama

package manager

// This file provides a no-CGO stub for the llama adapter. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds CGO-free.
// The real adapter lives in adapter_llama.go (tagged 'llama').

import (
	"context"
)

// llamaBuilt indicates this binary was compiled without llama support.
const llamaBuilt = false

const llamaNotBuiltMsg = "llama support not built (rebuild with -tags llama, or use backend \"server\" or \"spawn\")"

// llamaAdapter satisfies InferenceAdapter but refuses to run inference
// without the 'llama' build tag.
type llamaAdapter struct {
	ctxSize   int
	threads   int
	gpuLayers int
}

// NewLlamaAdapter returns the stub adapter.
func NewLlamaAdapter(ctxSize, threads, gpuLayers int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads, gpuLayers: gpuLayers}
}

func (a *llamaAdapter) Start(_ context.Context, modelPath string, params InferParams) (InferSession, error) {
	return nil, ErrDependencyUnavailable(llamaNotBuiltMsg)
}
