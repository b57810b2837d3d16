package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// createModelFile creates a small placeholder model file and returns its path.
func createModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

// fakeAdapter is a lightweight in-memory adapter used for tests.
type fakeAdapter struct {
	startErr       error
	genErr         error
	tokens         []string
	final          FinalResult
	receivedRef    string
	receivedParams InferParams
	receivedPrompt string
	closed         int
}

func (f *fakeAdapter) Start(_ context.Context, modelRef string, params InferParams) (InferSession, error) {
	f.receivedRef = modelRef
	f.receivedParams = params
	if f.startErr != nil {
		return nil, f.startErr
	}
	return fakeSession{f: f}, nil
}

type fakeSession struct{ f *fakeAdapter }

func (s fakeSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	s.f.receivedPrompt = prompt
	if s.f.genErr != nil {
		return FinalResult{}, s.f.genErr
	}
	for _, t := range s.f.tokens {
		select {
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		default:
		}
		if err := onToken(t); err != nil {
			return FinalResult{}, err
		}
	}
	return s.f.final, nil
}

func (s fakeSession) Close() error {
	s.f.closed++
	return nil
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
