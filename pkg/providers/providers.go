package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package providers describes the upstream news APIs and the adapters that map them.

// Kind selects the adapter implementation that understands a provider's response shape.
type Kind string

const (
	KindWireService     Kind = "wire_service"
	KindNewspaperSearch Kind = "newspaper_search"
	KindAggregator      Kind = "aggregator"
)

// Valid reports whether k names a known adapter kind.
func (k Kind) Valid() bool {
	switch k {
	case KindWireService, KindNewspaperSearch, KindAggregator:
		return true
	}
	return false
}

// KeyPlacement says where the API key travels on the outbound request.
type KeyPlacement string

const (
	KeyInQuery  KeyPlacement = "query"
	KeyInHeader KeyPlacement = "header"
)

// Provider is the data-only description of one upstream API.
type Provider struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Kind           Kind              `json:"kind" yaml:"kind"`
	CredentialKey  string            `json:"credential_key" yaml:"credential_key"`
	Aliases        []string          `json:"aliases" yaml:"aliases"`
	DefaultQuery   string            `json:"default_query" yaml:"default_query"`
	KeyPlacement   KeyPlacement      `json:"key_placement" yaml:"key_placement"`
	KeyName        string            `json:"key_name" yaml:"key_name"`
	PublisherName  string            `json:"publisher_name" yaml:"publisher_name"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
}

// Timeout returns the per-provider request timeout, or fallback when unset.
func (p Provider) Timeout(fallback time.Duration) time.Duration {
	if p.TimeoutSeconds <= 0 {
		return fallback
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// DefaultProviders returns the built-in provider table.
func DefaultProviders() []Provider {
	return []Provider{
		{
			ID:            "guardian",
			Name:          "The Guardian",
			Kind:          KindWireService,
			CredentialKey: "theguardian.com",
			Aliases:       []string{"open-platform.theguardian.com", "theguardian.com", "guardian", "theguardian"},
			DefaultQuery:  "show-fields=headline,byline,body,thumbnail,trailText&page-size=20&order-by=newest",
			KeyPlacement:  KeyInQuery,
			KeyName:       "api-key",
			PublisherName: "The Guardian",
		},
		{
			ID:            "nytimes",
			Name:          "The New York Times",
			Kind:          KindNewspaperSearch,
			CredentialKey: "nytimes.com",
			Aliases:       []string{"nytimes.com", "api.nytimes.com", "nytimes", "nyt"},
			DefaultQuery:  "sort=newest&page=0",
			KeyPlacement:  KeyInQuery,
			KeyName:       "api-key",
			PublisherName: "The New York Times",
		},
		{
			ID:            "newsapi",
			Name:          "NewsAPI.org",
			Kind:          KindAggregator,
			CredentialKey: "newsapi.org",
			Aliases:       []string{"newsapi.org", "newsapi"},
			DefaultQuery:  "q=technology&language=en&sortBy=publishedAt",
			KeyPlacement:  KeyInHeader,
			KeyName:       "X-Api-Key",
		},
	}
}

type registryFile struct {
	Providers []Provider `json:"providers" yaml:"providers"`
}

// Registry resolves requested provider ids and aliases to provider descriptors.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	byAlias   map[string]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(ps ...Provider) (*Registry, error) {
	reg := &Registry{
		providers: make([]Provider, 0, len(ps)),
		byAlias:   make(map[string]Provider),
	}
	seen := make(map[string]struct{}, len(ps))
	for i := range ps {
		p := sanitizeProvider(ps[i])
		if err := validateProvider(p); err != nil {
			return nil, fmt.Errorf("provider[%d]: %w", i, err)
		}
		if _, exists := seen[p.ID]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = struct{}{}

		for _, alias := range append([]string{p.ID}, p.Aliases...) {
			key := aliasKey(alias)
			if key == "" {
				continue
			}
			if other, taken := reg.byAlias[key]; taken && other.ID != p.ID {
				return nil, fmt.Errorf("alias %q claimed by providers %q and %q", alias, other.ID, p.ID)
			}
			reg.byAlias[key] = p
		}
		reg.providers = append(reg.providers, p)
	}
	return reg, nil
}

// DefaultRegistry returns a registry over DefaultProviders.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultProviders()...)
	if err != nil {
		panic(fmt.Sprintf("built-in providers invalid: %v", err))
	}
	return reg
}

// LoadRegistry merges provider overrides from a YAML/JSON file onto the built-in table.
// An empty path yields the built-in table unchanged.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRegistry(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open providers file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	fileReg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Providers) == 0 {
		return nil, errors.New("providers file contains no providers entries")
	}

	return NewRegistry(mergeProviders(DefaultProviders(), fileReg.Providers)...)
}

// Resolve finds the provider registered under id or one of its aliases.
func (r *Registry) Resolve(id string) (Provider, bool) {
	if r == nil {
		return Provider{}, false
	}
	key := aliasKey(id)
	if key == "" {
		return Provider{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byAlias[key]
	return p, ok
}

// All returns a copy of the registered providers.
func (r *Registry) All() []Provider {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

func mergeProviders(base, overrides []Provider) []Provider {
	out := make([]Provider, len(base))
	copy(out, base)
	idx := make(map[string]int, len(out))
	for i, p := range out {
		idx[p.ID] = i
	}

	for _, o := range overrides {
		o.ID = strings.TrimSpace(o.ID)
		i, ok := idx[o.ID]
		if !ok {
			idx[o.ID] = len(out)
			out = append(out, o)
			continue
		}
		p := out[i]
		if o.Name != "" {
			p.Name = o.Name
		}
		if o.Kind != "" {
			p.Kind = o.Kind
		}
		if o.CredentialKey != "" {
			p.CredentialKey = o.CredentialKey
		}
		if len(o.Aliases) > 0 {
			p.Aliases = o.Aliases
		}
		if o.DefaultQuery != "" {
			p.DefaultQuery = o.DefaultQuery
		}
		if o.KeyPlacement != "" {
			p.KeyPlacement = o.KeyPlacement
		}
		if o.KeyName != "" {
			p.KeyName = o.KeyName
		}
		if o.PublisherName != "" {
			p.PublisherName = o.PublisherName
		}
		if o.TimeoutSeconds > 0 {
			p.TimeoutSeconds = o.TimeoutSeconds
		}
		if len(o.Headers) > 0 {
			p.Headers = o.Headers
		}
		out[i] = p
	}
	return out
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("providers file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s providers: %w", name, err)
	}
	return reg, nil
}

func sanitizeProvider(p Provider) Provider {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Kind = Kind(strings.ToLower(strings.TrimSpace(string(p.Kind))))
	p.CredentialKey = strings.TrimSpace(p.CredentialKey)
	p.DefaultQuery = strings.TrimPrefix(strings.TrimSpace(p.DefaultQuery), "?")
	p.KeyPlacement = KeyPlacement(strings.ToLower(strings.TrimSpace(string(p.KeyPlacement))))
	p.KeyName = strings.TrimSpace(p.KeyName)
	p.PublisherName = strings.TrimSpace(p.PublisherName)

	aliases := make([]string, 0, len(p.Aliases))
	for _, a := range p.Aliases {
		if a = strings.TrimSpace(a); a != "" {
			aliases = append(aliases, a)
		}
	}
	p.Aliases = aliases

	if p.Name == "" {
		p.Name = p.ID
	}
	if p.KeyPlacement == "" {
		p.KeyPlacement = KeyInQuery
	}
	return p
}

func validateProvider(p Provider) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("unknown kind %q for provider %q", p.Kind, p.ID)
	}
	if p.CredentialKey == "" {
		return fmt.Errorf("credential_key is required for provider %q", p.ID)
	}
	if p.KeyName == "" {
		return fmt.Errorf("key_name is required for provider %q", p.ID)
	}
	if p.KeyPlacement != KeyInQuery && p.KeyPlacement != KeyInHeader {
		return fmt.Errorf("key_placement must be %q or %q for provider %q", KeyInQuery, KeyInHeader, p.ID)
	}
	if p.Kind != KindAggregator && p.PublisherName == "" {
		return fmt.Errorf("publisher_name is required for provider %q", p.ID)
	}
	return nil
}

func aliasKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
