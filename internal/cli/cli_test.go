package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastcheck/internal/manager"
	"roastcheck/internal/prompt"
)

const defaultModel = "mistral-7b-instruct-v0.1.Q4_0.gguf"

type fakeAdapter struct {
	tokens []string
	genErr error
	ref    string
	params manager.InferParams
	prompt string
}

func (f *fakeAdapter) Start(_ context.Context, ref string, p manager.InferParams) (manager.InferSession, error) {
	f.ref, f.params = ref, p
	return fakeSession{f}, nil
}

type fakeSession struct{ f *fakeAdapter }

func (s fakeSession) Generate(_ context.Context, prompt string, onToken func(string) error) (manager.FinalResult, error) {
	s.f.prompt = prompt
	if s.f.genErr != nil {
		return manager.FinalResult{}, s.f.genErr
	}
	for _, tok := range s.f.tokens {
		if err := onToken(tok); err != nil {
			return manager.FinalResult{}, err
		}
	}
	return manager.FinalResult{FinishReason: "stop"}, nil
}

func (fakeSession) Close() error { return nil }

// modelsDir returns a directory holding a placeholder default model.
func modelsDir(t *testing.T) string {
	t.Helper()
	d := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(d, defaultModel), []byte("GGUF"), 0o644))
	return d
}

type result struct {
	stdout, stderr string
	code           int
}

func run(t *testing.T, task prompt.Task, stdin string, a manager.InferenceAdapter, args ...string) result {
	t.Helper()
	var out, errb bytes.Buffer
	opts := &Options{Stdin: strings.NewReader(stdin), Stdout: &out, Stderr: &errb, Adapter: a}
	args = append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...)
	code := execute(NewCommand(task, opts), args, &errb)
	return result{stdout: out.String(), stderr: errb.String(), code: code}
}

func TestFactCheck_DryRunPrintsExactPrompt(t *testing.T) {
	r := run(t, prompt.TaskFactCheck, `{"targetUsername":"bob","targetMessage":"the moon is cheese"}`, nil,
		"--dry-run", "--models-dir", t.TempDir())
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Fact-check the following statement: 'the moon is cheese'. Provide a short response on whether the statement is true or not.\n", r.stdout)
	assert.Empty(t, r.stderr)
}

func TestRoast_PrintsTrimmedCompletion(t *testing.T) {
	fa := &fakeAdapter{tokens: []string{"\n Nice", " try,", " Bob. \n"}}
	dir := modelsDir(t)
	r := run(t, prompt.TaskRoast, `{"targetUsername":"Bob","targetMessage":"I never lose"}`, fa, "--models-dir", dir)

	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Nice try, Bob.\n", r.stdout)
	assert.Equal(t, "Generate a harsh roast directed at 'Bob' who said: 'I never lose'. Provide a short response roasting 'Bob'.", fa.prompt)
	assert.Equal(t, filepath.Join(dir, defaultModel), fa.ref)
	assert.Equal(t, 100, fa.params.MaxTokens)
}

func TestMalformedInput(t *testing.T) {
	for _, in := range []string{"", "not json", "[1,2]", `{"targetMessage":"x"} trailing`} {
		fa := &fakeAdapter{tokens: []string{"unused"}}
		r := run(t, prompt.TaskFactCheck, in, fa, "--models-dir", modelsDir(t))
		assert.Equal(t, 1, r.code, "input %q", in)
		assert.Empty(t, r.stdout, "input %q", in)
		assert.Contains(t, r.stderr, "Error: ", "input %q", in)
		assert.Empty(t, fa.prompt, "model must not run for %q", in)
	}
}

func TestModelFailure(t *testing.T) {
	fa := &fakeAdapter{tokens: []string{"partial"}, genErr: errors.New("boom")}
	r := run(t, prompt.TaskRoast, `{"targetUsername":"a","targetMessage":"b"}`, fa, "--models-dir", modelsDir(t))
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "Error: generation failed: boom")
}

func TestEmptyCompletionFails(t *testing.T) {
	fa := &fakeAdapter{tokens: []string{" ", "\n"}}
	r := run(t, prompt.TaskFactCheck, `{"targetMessage":"b"}`, fa, "--models-dir", modelsDir(t))
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, manager.ErrEmptyCompletion.Error())
}

func TestMissingModel(t *testing.T) {
	r := run(t, prompt.TaskFactCheck, `{"targetMessage":"b"}`, nil, "--models-dir", t.TempDir())
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "model not found: "+defaultModel)
}

func TestMissingModelsDir(t *testing.T) {
	r := run(t, prompt.TaskFactCheck, `{"targetMessage":"b"}`, &fakeAdapter{}, "--models-dir", filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "load models from")
}

func TestInvalidConfig(t *testing.T) {
	r := run(t, prompt.TaskRoast, `{"targetMessage":"b"}`, &fakeAdapter{}, "--max-tokens", "0")
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "max_tokens")
}

func TestUnknownFlag(t *testing.T) {
	r := run(t, prompt.TaskRoast, `{}`, nil, "--bogus")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Error: unknown flag: --bogus")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("ROASTCHECK_MAX_TOKENS", "7")
	t.Setenv("ROASTCHECK_TEMPERATURE", "0.5")
	fa := &fakeAdapter{tokens: []string{"ok"}}
	r := run(t, prompt.TaskRoast, `{"targetMessage":"b"}`, fa, "--models-dir", modelsDir(t), "--max-tokens", "9")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, 9, fa.params.MaxTokens)
	require.NotNil(t, fa.params.Temperature)
	assert.InDelta(t, 0.5, *fa.params.Temperature, 1e-6)
}

func TestSamplingUnsetVersusExplicitZero(t *testing.T) {
	fa := &fakeAdapter{tokens: []string{"ok"}}
	r := run(t, prompt.TaskRoast, `{"targetMessage":"b"}`, fa, "--models-dir", modelsDir(t))
	require.Equal(t, 0, r.code, r.stderr)
	assert.Nil(t, fa.params.Temperature)
	assert.Nil(t, fa.params.TopP)
	assert.Nil(t, fa.params.Seed)

	fa = &fakeAdapter{tokens: []string{"ok"}}
	r = run(t, prompt.TaskRoast, `{"targetMessage":"b"}`, fa, "--models-dir", modelsDir(t),
		"--temperature", "0", "--seed", "0")
	require.Equal(t, 0, r.code, r.stderr)
	require.NotNil(t, fa.params.Temperature)
	assert.Zero(t, *fa.params.Temperature)
	require.NotNil(t, fa.params.Seed)
	assert.Zero(t, *fa.params.Seed)
	assert.Nil(t, fa.params.TopP)
}

func TestTemplateOverrideAndSanitize(t *testing.T) {
	r := run(t, prompt.TaskRoast, `{"targetUsername":"<b>x</b>","targetMessage":"hi"}`, nil,
		"--dry-run", "--sanitize-html", "--template", "{{.TargetUsername}}: {{.TargetMessage}}")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "&lt;b&gt;x&lt;/b&gt;: hi\n", r.stdout)
}

func TestDebugLogCarriesInvocation(t *testing.T) {
	r := run(t, prompt.TaskFactCheck, `{"targetMessage":"sky is green"}`, nil,
		"--dry-run", "--log-level", "debug", "--log-format", "json")
	require.Equal(t, 0, r.code, r.stderr)

	line := strings.SplitN(strings.TrimSpace(r.stderr), "\n", 2)[0]
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec), r.stderr)
	assert.Equal(t, "factcheck", rec["task"])
	assert.Equal(t, "sky is green", rec["targetMessage"])
	assert.NotEmpty(t, rec["invocation"])
}

func TestMetricsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "run.prom")
	fa := &fakeAdapter{tokens: []string{"fine"}}
	r := run(t, prompt.TaskRoast, `{"targetMessage":"b"}`, fa, "--models-dir", modelsDir(t), "--metrics-file", p)
	require.Equal(t, 0, r.code, r.stderr)

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `roastcheck_invocations_total{outcome="ok",task="roast"} 1`)
	assert.Contains(t, string(b), `roastcheck_generate_completion_chars_total{task="roast"} 4`)
}

func fakeServer(t *testing.T, words ...string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, word := range words {
			b, _ := json.Marshal(map[string]any{"choices": []map[string]any{{"text": word}}})
			_, _ = w.Write([]byte("data: " + string(b) + "\n\n"))
		}
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestServerBackend(t *testing.T) {
	ts := fakeServer(t, "That", " is", " false.")
	r := run(t, prompt.TaskFactCheck, `{"targetMessage":"the earth is flat"}`, nil,
		"--backend", "server", "--server-url", ts.URL, "--models-dir", filepath.Join(t.TempDir(), "absent"))
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "That is false.\n", r.stdout)
}

func TestServerBackendRequiresURL(t *testing.T) {
	r := run(t, prompt.TaskFactCheck, `{"targetMessage":"x"}`, nil, "--backend", "server")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "server_url is required")
}

func runRoot(t *testing.T, args ...string) result {
	t.Helper()
	var out, errb bytes.Buffer
	opts := &Options{Stdin: strings.NewReader(""), Stdout: &out, Stderr: &errb}
	code := execute(NewRootCmd(opts), args, &errb)
	return result{stdout: out.String(), stderr: errb.String(), code: code}
}

func TestRoot_Models(t *testing.T) {
	dir := modelsDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tinyllama-1.1b-chat.Q4_K_M.gguf"), []byte("GGUF"), 0o644))
	r := runRoot(t, "models", "--models-dir", dir, "--env-file", filepath.Join(dir, "none.env"))
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, defaultModel)
	assert.Contains(t, r.stdout, "Q4_K_M")
	assert.Contains(t, r.stdout, "tinyllama")
	for _, line := range strings.Split(r.stdout, "\n") {
		switch {
		case strings.Contains(line, defaultModel):
			assert.Contains(t, line, "*", "default model row should be marked")
		case strings.Contains(line, "tinyllama"):
			assert.NotContains(t, line, "*")
		}
	}
}

func TestRoot_ModelsDefaultFollowsFlag(t *testing.T) {
	dir := modelsDir(t)
	other := "tinyllama-1.1b-chat.Q4_K_M.gguf"
	require.NoError(t, os.WriteFile(filepath.Join(dir, other), []byte("GGUF"), 0o644))
	r := runRoot(t, "models", "--models-dir", dir, "--model", other, "--env-file", filepath.Join(dir, "none.env"))
	require.Equal(t, 0, r.code, r.stderr)
	for _, line := range strings.Split(r.stdout, "\n") {
		if strings.Contains(line, defaultModel) {
			assert.NotContains(t, line, "*")
		}
		if strings.Contains(line, other) {
			assert.Contains(t, line, "*")
		}
	}
}

func TestRoot_SanityServer(t *testing.T) {
	ts := fakeServer(t)
	r := runRoot(t, "sanity", "--backend", "server", "--server-url", ts.URL, "--env-file", filepath.Join(t.TempDir(), "none.env"))
	require.Equal(t, 0, r.code, r.stderr)

	var rep manager.SanityReport
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &rep))
	assert.True(t, rep.OK)
	assert.True(t, rep.ServerReachable)
}

func TestRoot_HasFilterCommands(t *testing.T) {
	root := NewRootCmd(nil)
	for _, name := range []string{"factcheck", "roast", "models", "sanity"} {
		c, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}
}
