// pkg/registry/registry.go
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"canteen-menu/internal/common/config"
	"canteen-menu/internal/fetcher"
	"canteen-menu/internal/fetcher/confluence"
)

// Registry maps fetcher.source values to source factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a source. Names are unique.
func (r *Registry) Register(info SourceInfo, f Factory) error {
	if info.Name == "" || f == nil {
		return fmt.Errorf("registry: source needs a name and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[info.Name]; exists {
		return fmt.Errorf("registry: source %q already registered", info.Name)
	}
	r.entries[info.Name] = entry{info: info, factory: f}
	return nil
}

// Build constructs the source registered under name.
func (r *Registry) Build(name string, d Deps) (fetcher.Source, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown source %q (known: %v)", name, r.Names())
	}
	return e.factory(d)
}

// Names lists registered sources in alphabetical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sources returns the descriptions of all registered sources, sorted by name.
func (r *Registry) Sources() []SourceInfo {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SourceInfo, 0, len(names))
	for _, name := range names {
		out = append(out, r.entries[name].info)
	}
	return out
}

// Default returns a registry holding the built-in mock and confluence sources.
func Default() *Registry {
	r := New()
	_ = r.Register(SourceInfo{
		Name:        config.SourceMock,
		Description: "Empty menus for every workday of the current week; no network access",
	}, buildMock)
	_ = r.Register(SourceInfo{
		Name:        config.SourceConfluence,
		Description: "Latest image attached to a Confluence page, read by a vision model",
		Requires:    []string{"confluence.base_url", "confluence.page_id", "openai.api_key"},
	}, buildConfluence)
	return r
}

func buildMock(d Deps) (fetcher.Source, error) {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return fetcher.NewMockSource(func() time.Time { return time.Now().In(loc) }), nil
}

func buildConfluence(d Deps) (fetcher.Source, error) {
	cfg := d.Config
	client := confluence.NewClient(confluence.Config{
		BaseURL: cfg.Confluence.BaseURL,
		Auth:    cfg.Confluence.Auth,
		PageID:  cfg.Confluence.PageID,
		Timeout: config.GetDuration(cfg.Confluence.Timeout),
	}, d.Logger)

	extractor, err := confluence.NewOpenAIExtractor(confluence.ExtractorConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Timeout: config.GetDuration(cfg.OpenAI.Timeout),
	}, d.Logger)
	if err != nil {
		return nil, err
	}

	return confluence.NewSource(client, extractor, d.Location, d.Logger), nil
}
