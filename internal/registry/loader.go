// Package registry discovers gguf model files on disk.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"

	"roastcheck/internal/common/fsutil"
	"roastcheck/pkg/types"
)

// DefaultModelsDir is where models are looked up when nothing is configured.
const DefaultModelsDir = "./models"

// Scanner discovers models under a directory.
type Scanner interface {
	Scan(dir string) ([]types.Model, error)
}

// GGUFScanner lists *.gguf files (case-insensitive) in a single directory.
type GGUFScanner struct{}

// NewGGUFScanner returns a Scanner for gguf files.
func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

var quantPattern = regexp.MustCompile(`(?i)(?:^|[.\-_])((?:I?Q\d+(?:_[A-Z0-9]+)*)|F16|F32|BF16)$`)

// Scan builds a registry from file names. ID is the full file name, Path the
// absolute path; Quant and Family are inferred from the name when possible.
func (GGUFScanner) Scan(dir string) ([]types.Model, error) {
	abs, err := fsutil.AbsPath(dir)
	if err != nil {
		return nil, err
	}
	if !fsutil.PathExists(abs) {
		return nil, fmt.Errorf("models dir %s does not exist", abs)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	ggufs := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".gguf")
	})
	models := lo.Map(ggufs, func(e os.DirEntry, _ int) types.Model {
		name := e.Name()
		m := types.Model{
			ID:     name,
			Name:   name,
			Path:   filepath.Join(abs, name),
			Quant:  quantOf(name),
			Family: familyOf(name),
		}
		if fi, err := e.Info(); err == nil {
			m.SizeBytes = fi.Size()
		}
		return m
	})
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadDir scans dir with the gguf scanner.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}

// Resolve returns the model named name inside dir. The name is matched
// exactly first, then case-insensitively.
func Resolve(dir, name string) (types.Model, error) {
	models, err := LoadDir(dir)
	if err != nil {
		return types.Model{}, err
	}
	if m, ok := lo.Find(models, func(m types.Model) bool { return m.ID == name }); ok {
		return m, nil
	}
	if m, ok := lo.Find(models, func(m types.Model) bool { return strings.EqualFold(m.ID, name) }); ok {
		return m, nil
	}
	return types.Model{}, fmt.Errorf("model %s not found in %s", name, dir)
}

func quantOf(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if m := quantPattern.FindStringSubmatch(base); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

func familyOf(name string) string {
	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, fam := range []string{"mistral", "mixtral", "llama", "tinyllama", "phi", "gemma", "qwen", "falcon", "orca"} {
		if strings.HasPrefix(base, fam) {
			return fam
		}
	}
	return ""
}
