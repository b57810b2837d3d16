package manager

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/samber/lo"

	"roastcheck/internal/common/fsutil"
	"roastcheck/pkg/types"
)

// Helper: find model in registry by id.
func (m *Manager) getModelByID(id string) (types.Model, bool) {
	return lo.Find(m.registry, func(mdl types.Model) bool { return mdl.ID == id })
}

// checkModelsEndpoint reports whether baseURL answers GET /v1/models with 2xx.
func checkModelsEndpoint(ctx context.Context, cli *http.Client, baseURL, apiKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

// resolveLlamaBin expands a configured binary path, falling back to discovery.
func resolveLlamaBin(configured string) string {
	if configured == "" {
		return discoverLlamaBin()
	}
	if p, err := fsutil.ExpandHome(configured); err == nil {
		return p
	}
	return configured
}

// discoverLlamaBin attempts to locate a llama.cpp server binary in common paths.
func discoverLlamaBin() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, "apps", "llama.cpp", "build", "bin", "llama-server"),
		filepath.Join(home, "llama.cpp", "build", "bin", "llama-server"),
		"/usr/local/bin/llama-server",
		"/opt/homebrew/bin/llama-server",
	}
	if p, ok := lo.Find(candidates, fsutil.IsRegularFile); ok {
		return p
	}
	if lp, err := exec.LookPath("llama-server"); err == nil {
		return lp
	}
	return ""
}
