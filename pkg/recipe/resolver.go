package recipe

import (
	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/logging"
)

// Designator is a user-supplied package designation: either a bare
// name to be resolved through the store, or an explicit recipe that
// passes through resolution unchanged.
type Designator struct {
	Name   string
	Recipe *Recipe
}

// ByName designates a package for store lookup.
func ByName(name string) Designator {
	return Designator{Name: name}
}

// Explicit designates a package with a fully-specified recipe.
func Explicit(rec Recipe) Designator {
	return Designator{Name: rec.Name, Recipe: &rec}
}

// String returns the designated package name.
func (d Designator) String() string {
	if d.Recipe != nil {
		return d.Recipe.Name
	}
	return d.Name
}

// Resolver normalizes designators into canonical recipes by consulting
// the store. Resolution is a pure lookup; it never mutates any source.
type Resolver struct {
	store *Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve turns a designator into a validated recipe.
//
// An explicit recipe carrying more than a name is returned unchanged.
// A bare name, or an explicit recipe that is only a name, is searched
// across the store in source order, first match wins.
func (r *Resolver) Resolve(d Designator) (Recipe, error) {
	logger := logging.GetLogger("recipe.resolver")

	if d.Recipe != nil && !d.Recipe.NameOnly() {
		if err := d.Recipe.Validate(); err != nil {
			return Recipe{}, err
		}
		logger.Debug().Str("recipe", d.Recipe.Name).Msg("Using explicit recipe")
		return *d.Recipe, nil
	}

	name := d.String()
	if name == "" {
		return Recipe{}, errors.New(errors.ErrInvalidInput, "empty package designator")
	}

	rec, ok, err := r.store.Lookup(name)
	if err != nil {
		return Recipe{}, err
	}
	if !ok {
		return Recipe{}, errors.Newf(errors.ErrRecipeNotFound, "no recipe found for %q", name).
			WithDetail("sources", r.store.SourceNames())
	}

	if err := rec.Validate(); err != nil {
		return Recipe{}, err
	}
	return rec, nil
}

// Describe resolves a name and renders the resulting recipe verbatim.
// This is the interactive/inspection form of Resolve; only the
// presentation differs.
func (r *Resolver) Describe(name string) (string, error) {
	rec, err := r.Resolve(ByName(name))
	if err != nil {
		return "", err
	}
	return rec.Render()
}
