package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/srcget/srcget/pkg/fetch"
	"github.com/srcget/srcget/pkg/recipe"
)

// FakeFetcher is an in-memory fetch.Fetcher: it materializes
// per-package file maps into the destination directory and records
// how often each package was fetched.
type FakeFetcher struct {
	kind recipe.Fetcher

	mu       sync.Mutex
	files    map[string]map[string]string
	versions map[string]string
	failures map[string]error
	fetches  map[string]int
}

// NewFakeFetcher creates a fake registered under the given kind.
func NewFakeFetcher(kind recipe.Fetcher) *FakeFetcher {
	return &FakeFetcher{
		kind:     kind,
		files:    make(map[string]map[string]string),
		versions: make(map[string]string),
		failures: make(map[string]error),
		fetches:  make(map[string]int),
	}
}

// Kind implements fetch.Fetcher.
func (f *FakeFetcher) Kind() recipe.Fetcher { return f.kind }

// SetFiles defines the source tree delivered for a package.
func (f *FakeFetcher) SetFiles(pkg string, files map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[pkg] = files
}

// SetUpstreamVersion defines the version the fake reports upstream.
func (f *FakeFetcher) SetUpstreamVersion(pkg, v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[pkg] = v
}

// FailWith makes fetches of a package fail.
func (f *FakeFetcher) FailWith(pkg string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[pkg] = err
}

// Fetches reports how many times a package was fetched.
func (f *FakeFetcher) Fetches(pkg string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[pkg]
}

// Fetch implements fetch.Fetcher.
func (f *FakeFetcher) Fetch(ctx context.Context, rec recipe.Recipe, destDir string) (fetch.Info, error) {
	f.mu.Lock()
	files := f.files[rec.Name]
	failure := f.failures[rec.Name]
	upstream := f.versions[rec.Name]
	f.fetches[rec.Name]++
	f.mu.Unlock()

	if failure != nil {
		return fetch.Info{}, failure
	}

	if err := os.RemoveAll(destDir); err != nil {
		return fetch.Info{}, err
	}
	for rel, content := range files {
		path := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fetch.Info{}, err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fetch.Info{}, err
		}
	}
	return fetch.Info{UpstreamVersion: upstream}, nil
}

var _ fetch.Fetcher = (*FakeFetcher)(nil)
