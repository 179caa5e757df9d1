package providers

import (
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-news-ingest/pkg/httpclient"
)

// adapterRegistry implements AdapterRegistry keyed by provider kind.
type adapterRegistry struct {
	mu       sync.RWMutex
	adapters map[Kind]Adapter
}

// NewAdapterRegistry builds a registry for the provided adapter implementations.
func NewAdapterRegistry(adapters ...Adapter) AdapterRegistry {
	reg := &adapterRegistry{adapters: make(map[Kind]Adapter, len(adapters))}
	for _, a := range adapters {
		reg.register(a)
	}
	return reg
}

func (r *adapterRegistry) register(a Adapter) {
	if a == nil || !a.Kind().Valid() {
		return
	}
	r.mu.Lock()
	r.adapters[a.Kind()] = a
	r.mu.Unlock()
}

// AdapterFor selects the adapter for the given provider based on its kind.
func (r *adapterRegistry) AdapterFor(p Provider) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("adapter registry is nil")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.adapters[p.Kind]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("no adapter registered for provider %q (kind %q)", p.ID, p.Kind)
}

// DefaultHTTPClient returns a tuned client for provider adapters.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(15 * time.Second) }

// DefaultAdapterRegistry wires up the known adapters.
func DefaultAdapterRegistry(client HTTPClient) AdapterRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return NewAdapterRegistry(
		NewGuardianAdapter(client),
		NewNYTimesAdapter(client),
		NewNewsAPIAdapter(client),
	)
}
