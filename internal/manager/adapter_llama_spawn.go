package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Defaults for the spawn backend.
const (
	defaultSpawnHost         = "127.0.0.1"
	defaultSpawnReadyTimeout = 120 * time.Second
	spawnStopGrace           = 2 * time.Second
	stderrTailBytes          = 4096
)

// llamaSpawnAdapter starts a llama-server per session. The process lives only
// as long as the session, so every invocation loads the model fresh.
type llamaSpawnAdapter struct {
	bin          string
	host         string
	portStart    int
	portEnd      int
	ctxSize      int
	threads      int
	gpuLayers    int
	extraArgs    []string
	readyTimeout time.Duration
	httpClient   *http.Client
	publisher    EventPublisher
}

// NewLlamaSpawnAdapter constructs a spawn-backed adapter from cfg.
func NewLlamaSpawnAdapter(cfg ManagerConfig) InferenceAdapter {
	host := strings.TrimSpace(cfg.LlamaHost)
	if host == "" {
		host = defaultSpawnHost
	}
	rt := cfg.ReadyTimeout
	if rt <= 0 {
		rt = defaultSpawnReadyTimeout
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	return &llamaSpawnAdapter{
		bin:          strings.TrimSpace(cfg.LlamaBin),
		host:         host,
		portStart:    cfg.LlamaPortStart,
		portEnd:      cfg.LlamaPortEnd,
		ctxSize:      cfg.LlamaCtx,
		threads:      cfg.LlamaThreads,
		gpuLayers:    cfg.LlamaNGL,
		extraArgs:    append([]string(nil), cfg.LlamaExtraArgs...),
		readyTimeout: rt,
		// Timeout=0: all calls use context-based deadlines.
		httpClient: &http.Client{Timeout: 0},
		publisher:  pub,
	}
}

// llamaSpawnSession owns one llama-server process.
type llamaSpawnSession struct {
	a         *llamaSpawnAdapter
	modelPath string
	baseURL   string
	params    InferParams
	cmd       *exec.Cmd
	exited    chan struct{}
	closeOnce sync.Once
}

func (a *llamaSpawnAdapter) Start(ctx context.Context, modelPath string, params InferParams) (InferSession, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	bin := resolveLlamaBin(a.bin)
	if bin == "" {
		return nil, ErrDependencyUnavailable("llama-server not found: set llama_bin or install llama.cpp")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		port int
		err  error
	)
	if a.portStart > 0 && a.portEnd >= a.portStart {
		port, err = pickPortInRange(a.host, a.portStart, a.portEnd)
	} else {
		port, err = pickFreePort(a.host)
	}
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(a.host, strconv.Itoa(port)))

	args := []string{
		"-m", modelPath,
		"--host", a.host,
		"--port", strconv.Itoa(port),
	}
	if a.ctxSize > 0 {
		args = append(args, "-c", strconv.Itoa(a.ctxSize))
	}
	if a.gpuLayers > 0 {
		args = append(args, "-ngl", strconv.Itoa(a.gpuLayers))
	}
	if a.threads > 0 {
		args = append(args, "-t", strconv.Itoa(a.threads))
	}
	args = append(args, a.extraArgs...)

	cmd := exec.Command(bin, args...)
	// Kept in memory; the tail is included in startup failures.
	var stderr lockedBuffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, ErrDependencyUnavailable(fmt.Sprintf("start llama-server %s: %v", bin, err))
	}
	pid := cmd.Process.Pid
	a.publisher.Publish(Event{Name: "spawn_start", ModelID: modelPath, Fields: map[string]any{"pid": pid, "url": baseURL}})

	s := &llamaSpawnSession{a: a, modelPath: modelPath, baseURL: baseURL, params: params, cmd: cmd, exited: make(chan struct{})}
	waitErrCh := make(chan error, 1)
	go func() {
		werr := cmd.Wait()
		close(s.exited)
		waitErrCh <- werr
	}()

	deadline := time.Now().Add(a.readyTimeout)
	for {
		if time.Now().After(deadline) {
			a.publisher.Publish(Event{Name: "spawn_timeout", ModelID: modelPath, Fields: map[string]any{"pid": pid}})
			_ = s.Close()
			return nil, fmt.Errorf("llama-server not ready after %s: %s", a.readyTimeout, baseURL)
		}
		select {
		case werr := <-waitErrCh:
			tail := stderr.Tail(stderrTailBytes)
			fields := map[string]any{"pid": pid}
			if werr != nil {
				fields["error"] = werr.Error()
			}
			a.publisher.Publish(Event{Name: "spawn_exit", ModelID: modelPath, Fields: fields})
			if werr != nil {
				return nil, fmt.Errorf("llama-server exited early: %v; stderr tail: %s", werr, tail)
			}
			return nil, fmt.Errorf("llama-server exited before ready: %s", baseURL)
		case <-ctx.Done():
			_ = s.Close()
			return nil, ctx.Err()
		default:
		}

		pctx, cancel := context.WithTimeout(ctx, 1*time.Second)
		err := checkModelsEndpoint(pctx, a.httpClient, baseURL, "")
		cancel()
		if err == nil {
			a.publisher.Publish(Event{Name: "spawn_ready", ModelID: modelPath, Fields: map[string]any{"pid": pid, "url": baseURL}})
			return s, nil
		}
		select {
		case <-ctx.Done():
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (s *llamaSpawnSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	select {
	case <-s.exited:
		return FinalResult{}, errors.New("llama-server is not running")
	default:
	}
	payload := newCompletionRequest("", prompt, s.params)
	return streamCompletion(ctx, s.a.httpClient, s.baseURL, "", payload, onToken)
}

// Close terminates the process: SIGTERM first, then kill after a grace period.
func (s *llamaSpawnSession) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		select {
		case <-s.exited:
			return
		default:
		}
		_ = s.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-s.exited:
		case <-time.After(spawnStopGrace):
			_ = s.cmd.Process.Kill()
			<-s.exited
		}
		s.a.publisher.Publish(Event{Name: "spawn_stop", ModelID: s.modelPath, Fields: map[string]any{"pid": s.cmd.Process.Pid}})
	})
	return nil
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected addr: %s", l.Addr())
	}
	return addr.Port, nil
}

// lockedBuffer is a bytes.Buffer safe for the exec copier goroutine and readers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Tail returns at most n trailing bytes.
func (b *lockedBuffer) Tail(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}
