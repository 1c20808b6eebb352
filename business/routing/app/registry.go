package app

import (
	"sort"
	"strings"

	"github.com/fd1az/paybridge/internal/apperror"
)

// Registry resolves providers by name. It is filled at startup and read-only after.
type Registry struct {
	providers map[string]Provider
	fallback  string
}

// NewRegistry creates a registry with the given default provider name.
func NewRegistry(defaultProvider string, providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
		fallback:  strings.ToLower(defaultProvider),
	}
	for _, p := range providers {
		r.providers[strings.ToLower(p.Name())] = p
	}
	return r
}

// Get returns the provider called name, or the default when name is empty.
func (r *Registry) Get(name string) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = r.fallback
	}
	p, ok := r.providers[key]
	if !ok {
		return nil, apperror.New(apperror.CodeUnknownProvider, apperror.WithContext(name))
	}
	return p, nil
}

// Names lists registered providers.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
