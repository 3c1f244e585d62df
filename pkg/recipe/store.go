package recipe

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/logging"
)

// Source is one recipe lookup backend: a mapping from package name
// to recipe.
type Source interface {
	// Name identifies the source in logs and diagnostics.
	Name() string

	// Lookup returns the recipe for a package name, reporting whether
	// the source contains it. A missing name is not an error.
	Lookup(name string) (Recipe, bool, error)
}

// Store is an ordered sequence of sources. Lookup order is significant:
// the first source containing a name wins, which lets a writable
// session-local source shadow a shared read-only one.
type Store struct {
	sources []Source
}

// NewStore creates a store consulting the given sources in order.
func NewStore(sources ...Source) *Store {
	return &Store{sources: sources}
}

// Lookup searches the sources in order and returns the first match.
func (s *Store) Lookup(name string) (Recipe, bool, error) {
	logger := logging.GetLogger("recipe.store")

	for _, src := range s.sources {
		rec, ok, err := src.Lookup(name)
		if err != nil {
			return Recipe{}, false, err
		}
		if ok {
			logger.Debug().Str("recipe", name).Str("source", src.Name()).Msg("Recipe resolved")
			return rec, true, nil
		}
	}
	return Recipe{}, false, nil
}

// SourceNames returns the configured source names in lookup order.
func (s *Store) SourceNames() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}
	return names
}

// MapSource is an in-memory, writable recipe source. It serves as the
// session-local override store and as a test fixture.
type MapSource struct {
	name    string
	mu      sync.RWMutex
	recipes map[string]Recipe
}

// NewMapSource creates an empty in-memory source.
func NewMapSource(name string) *MapSource {
	return &MapSource{
		name:    name,
		recipes: make(map[string]Recipe),
	}
}

// Name implements Source.
func (m *MapSource) Name() string { return m.name }

// Put adds or replaces a recipe, keyed by its name.
func (m *MapSource) Put(rec Recipe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipes[rec.Name] = rec
}

// Lookup implements Source.
func (m *MapSource) Lookup(name string) (Recipe, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recipes[name]
	return rec, ok, nil
}

// Names returns the stored recipe names, sorted.
func (m *MapSource) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.recipes))
	for name := range m.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// recipeExtensions are the recognized recipe file extensions, tried in
// order. TOML is the native format; YAML is accepted for compatibility
// with shared recipe collections.
var recipeExtensions = []string{".toml", ".yaml", ".yml"}

// DirSource reads recipes from a directory of <name>.toml or
// <name>.yaml files.
type DirSource struct {
	name string
	dir  string
}

// NewDirSource creates a source backed by a recipe directory.
func NewDirSource(name, dir string) *DirSource {
	return &DirSource{name: name, dir: dir}
}

// Name implements Source.
func (d *DirSource) Name() string { return d.name }

// Lookup implements Source. A missing directory behaves as an empty
// source so configured-but-absent recipe dirs do not break resolution.
func (d *DirSource) Lookup(name string) (Recipe, bool, error) {
	for _, ext := range recipeExtensions {
		path := filepath.Join(d.dir, name+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Recipe{}, false, errors.Wrapf(err, errors.ErrRecipeStore, "failed to read recipe file %s", path)
		}

		rec, err := parseRecipeFile(path, data)
		if err != nil {
			return Recipe{}, false, err
		}

		// The filename is authoritative for the lookup key.
		if rec.Name == "" {
			rec.Name = name
		} else if rec.Name != name {
			return Recipe{}, false, errors.Newf(errors.ErrRecipeInvalid,
				"recipe file %s declares name %q", path, rec.Name)
		}
		return rec, true, nil
	}
	return Recipe{}, false, nil
}

func parseRecipeFile(path string, data []byte) (Recipe, error) {
	var rec Recipe
	var err error

	if strings.HasSuffix(path, ".toml") {
		err = toml.Unmarshal(data, &rec)
	} else {
		err = yaml.Unmarshal(data, &rec)
	}
	if err != nil {
		return Recipe{}, errors.Wrapf(err, errors.ErrRecipeInvalid, "failed to parse recipe file %s", path)
	}
	return rec, nil
}
