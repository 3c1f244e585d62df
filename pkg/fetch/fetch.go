// Package fetch obtains source trees for recipes. One fetcher exists
// per transport kind; dispatch goes through a closed registry keyed by
// the recipe's fetcher enum, never reflection.
package fetch

import (
	"context"
	"sort"
	"sync"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/recipe"
)

// Info is what a fetch reports back beyond the tree itself.
type Info struct {
	// UpstreamVersion is the version the upstream declares for the
	// fetched tree (a tag, usually). Empty when the transport has no
	// version concept or none was found.
	UpstreamVersion string
}

// Fetcher materializes a recipe's source tree into a destination
// directory. Fetching the same recipe twice must be able to reuse the
// destination (update in place or refresh).
type Fetcher interface {
	// Kind is the fetcher enum value this implementation serves.
	Kind() recipe.Fetcher

	// Fetch populates destDir with the recipe's source tree.
	Fetch(ctx context.Context, rec recipe.Recipe, destDir string) (Info, error)
}

// Registry maps fetcher kinds to implementations.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[recipe.Fetcher]Fetcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[recipe.Fetcher]Fetcher)}
}

// Register adds a fetcher for its kind.
func (r *Registry) Register(f Fetcher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := f.Kind()
	if !kind.Valid() {
		return errors.Newf(errors.ErrInvalidInput, "cannot register fetcher for unknown kind %q", kind)
	}
	if _, exists := r.fetchers[kind]; exists {
		return errors.Newf(errors.ErrAlreadyExists, "fetcher %q is already registered", kind)
	}
	r.fetchers[kind] = f
	return nil
}

// Get returns the fetcher for a kind.
func (r *Registry) Get(kind recipe.Fetcher) (Fetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.fetchers[kind]
	if !ok {
		return nil, errors.Newf(errors.ErrFetcherUnknown, "no fetcher registered for kind %q", kind)
	}
	return f, nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.fetchers))
	for kind := range r.fetchers {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	return kinds
}

// DefaultRegistry builds a registry with every transport this build
// of srcget supports.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range []Fetcher{
		NewGitFetcher(),
		NewHgFetcher(),
		NewSvnFetcher(),
		NewBzrFetcher(),
		NewURLFetcher(),
		NewWikiFetcher(),
		NewFileFetcher(),
	} {
		// Registration of the built-in set cannot collide
		_ = r.Register(f)
	}
	return r
}
