// Package buildcache persists the mapping from package name to the
// recipe last used to build it. The cache is the cross-invocation
// memory of "what recipe produced what is installed"; entries are
// last-write-wins per name and never merged.
package buildcache

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/logging"
	"github.com/srcget/srcget/pkg/recipe"
)

// Cache is a process-scoped build cache handle with explicit load and
// flush. Safe for concurrent use by parallel builds.
type Cache struct {
	path    string
	mu      sync.RWMutex
	entries map[string]recipe.Recipe

	// flushMu serializes snapshot+write+rename so concurrent builds
	// never interleave renames of the shared tmp file or persist a
	// stale snapshot over a newer one.
	flushMu sync.Mutex
}

// cacheFile is the on-disk form: one record per package.
type cacheFile struct {
	Recipes map[string]recipe.Recipe `toml:"recipes"`
}

// Load reads the cache file at path, or starts empty when none exists.
func Load(path string) (*Cache, error) {
	c := &Cache{
		path:    path,
		entries: make(map[string]recipe.Recipe),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, errors.Wrapf(err, errors.ErrCacheIO, "failed to read build cache %s", path)
	}

	var file cacheFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCacheIO, "failed to parse build cache %s", path)
	}
	if file.Recipes != nil {
		c.entries = file.Recipes
	}

	logger := logging.GetLogger("buildcache")
	logger.Debug().
		Int("entries", len(c.entries)).
		Str("path", path).
		Msg("Build cache loaded")
	return c, nil
}

// Record overwrites the entry for the recipe's name. Re-recording the
// same name with a different recipe replaces the stored recipe wholesale.
func (c *Cache) Record(rec recipe.Recipe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rec.Name] = rec
}

// Get returns the recipe last recorded for name.
func (c *Cache) Get(name string) (recipe.Recipe, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[name]
	return rec, ok
}

// Remove deletes the entry for name, if present. Called when the
// package itself is removed.
func (c *Cache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// Names returns the cached package names, sorted.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flush persists the cache atomically. A failed flush leaves the
// previous file intact. Flushes are serialized, and the snapshot is
// taken inside the serialization window, so the last flush to land
// always carries every entry recorded before it.
func (c *Cache) Flush() error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.RLock()
	snapshot := cacheFile{Recipes: make(map[string]recipe.Recipe, len(c.entries))}
	for name, rec := range c.entries {
		snapshot.Recipes[name] = rec
	}
	c.mu.RUnlock()

	data, err := toml.Marshal(snapshot)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCacheIO, "failed to serialize build cache %s", c.path)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrCacheIO, "failed to create cache dir for %s", c.path)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrCacheIO, "failed to write build cache %s", c.path)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return errors.Wrapf(err, errors.ErrCacheIO, "failed to replace build cache %s", c.path)
	}
	return nil
}
