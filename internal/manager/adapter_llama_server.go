package manager

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// llamaServerAdapter implements InferenceAdapter by talking to a running llama.cpp
// server over its OpenAI-compatible completions endpoint.
type llamaServerAdapter struct {
	baseURL    string
	apiKey     string
	reqTimeout time.Duration
	httpClient *http.Client
}

// NewLlamaServerAdapter constructs a server-backed adapter. A zero reqTimeout
// leaves generation unbounded.
func NewLlamaServerAdapter(baseURL, apiKey string, reqTimeout, connectTimeout time.Duration) InferenceAdapter {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: deadlines travel on the request context (see Generate).
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &llamaServerAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		reqTimeout: reqTimeout,
		httpClient: cli,
	}
}

// llamaServerSession holds per-session state.
type llamaServerSession struct {
	adapter    *llamaServerAdapter
	modelID    string
	baseParams InferParams
}

func (a *llamaServerAdapter) Start(_ context.Context, modelID string, params InferParams) (InferSession, error) {
	// The server owns its weights; the model is selected by id, not by path.
	return &llamaServerSession{
		adapter:    a,
		modelID:    strings.TrimSpace(modelID),
		baseParams: params,
	}, nil
}

func (s *llamaServerSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	if s.adapter == nil || s.adapter.httpClient == nil {
		return FinalResult{}, errors.New("llama server adapter not initialized")
	}
	if s.adapter.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.adapter.reqTimeout)
		defer cancel()
	}
	payload := newCompletionRequest(s.modelID, prompt, s.baseParams)
	return streamCompletion(ctx, s.adapter.httpClient, s.adapter.baseURL, s.adapter.apiKey, payload, onToken)
}

func (s *llamaServerSession) Close() error { return nil }

// ping checks that the server answers GET /v1/models.
func (a *llamaServerAdapter) ping(ctx context.Context) error {
	return checkModelsEndpoint(ctx, a.httpClient, a.baseURL, a.apiKey)
}
