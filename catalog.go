package llmstream

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/models/openai.yaml
var openaiCatalogYAML []byte

//go:embed config/models/anthropic.yaml
var anthropicCatalogYAML []byte

//go:embed config/models/ollama.yaml
var ollamaCatalogYAML []byte

// The catalog provides MODEL METADATA for UX and informational purposes.
// It does not enforce validation - provider APIs are the source of truth,
// and entries may lag behind provider releases. Library users can override
// the embedded data with LoadCatalogFromFile or RegisterCatalog.

// Catalog is the metadata set for one provider's models.
type Catalog struct {
	Version     string               `yaml:"version"`
	LastUpdated string               `yaml:"last_updated"` // ISO 8601 date
	Provider    string               `yaml:"provider"`
	Models      map[string]ModelInfo `yaml:"models"`
}

// ModelInfo describes one model's published limits and features.
type ModelInfo struct {
	ContextWindow   int  `yaml:"context_window"`
	MaxOutputTokens int  `yaml:"max_output_tokens"`
	Streaming       bool `yaml:"streaming"`
	Tools           bool `yaml:"tools"`
}

// CatalogRegistry holds per-provider catalogs.
type CatalogRegistry struct {
	catalogs map[string]*Catalog
	mu       sync.RWMutex
}

var (
	globalCatalog     *CatalogRegistry
	globalCatalogOnce sync.Once
)

// GetCatalogRegistry returns the global catalog registry, loading the
// embedded catalogs on first use.
func GetCatalogRegistry() *CatalogRegistry {
	globalCatalogOnce.Do(func() {
		globalCatalog = &CatalogRegistry{catalogs: make(map[string]*Catalog)}
		for _, raw := range [][]byte{openaiCatalogYAML, anthropicCatalogYAML, ollamaCatalogYAML} {
			if err := globalCatalog.loadYAML(raw); err != nil {
				// Missing metadata is informational only; don't panic.
				fmt.Fprintf(os.Stderr, "llmstream: failed to load embedded catalog: %v\n", err)
			}
		}
	})
	return globalCatalog
}

func (r *CatalogRegistry) loadYAML(raw []byte) error {
	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return err
	}
	if cat.Provider == "" {
		return fmt.Errorf("catalog missing provider field")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogs[cat.Provider] = &cat
	return nil
}

// RegisterCatalog installs or replaces a provider's catalog programmatically.
func (r *CatalogRegistry) RegisterCatalog(cat *Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogs[cat.Provider] = cat
}

// LoadCatalogFromFile reads a catalog YAML file and installs it, replacing
// any embedded catalog for the same provider.
func (r *CatalogRegistry) LoadCatalogFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", path, err)
	}
	return r.loadYAML(raw)
}

// Lookup returns the metadata for a provider's model.
func (r *CatalogRegistry) Lookup(provider ProviderID, model string) (ModelInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cat, ok := r.catalogs[provider.String()]
	if !ok {
		return ModelInfo{}, false
	}
	info, ok := cat.Models[model]
	return info, ok
}
