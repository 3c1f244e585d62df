// Package testutil provides a sandboxed environment for exercising the
// build and install path in tests: all filesystem state under a temp
// root, an in-memory recipe source, and a fake fetcher, constructed
// fresh per test.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/srcget/srcget/pkg/buildcache"
	"github.com/srcget/srcget/pkg/builder"
	"github.com/srcget/srcget/pkg/fetch"
	"github.com/srcget/srcget/pkg/fingerprint"
	"github.com/srcget/srcget/pkg/paths"
	"github.com/srcget/srcget/pkg/pkgdb"
	"github.com/srcget/srcget/pkg/recipe"
	"github.com/srcget/srcget/pkg/version"
)

// Env is one sandboxed srcget instance.
type Env struct {
	Paths    paths.Paths
	Source   *recipe.MapSource
	Resolver *recipe.Resolver
	Fetcher  *FakeFetcher
	Registry *fetch.Registry
	Cache    *buildcache.Cache
	DB       *pkgdb.DB
	Builder  *builder.Builder

	// Now is the clock the fingerprint engine reads. Advance it to
	// give changed sources distinguishable snapshot stamps.
	Now time.Time
}

// NewEnv constructs a fresh environment rooted under t.TempDir().
func NewEnv(t *testing.T) *Env {
	t.Helper()

	env := &Env{
		Paths:  paths.NewWithRoot(t.TempDir()),
		Source: recipe.NewMapSource("test"),
		Now:    time.Date(2014, 4, 6, 16, 13, 0, 0, time.UTC),
	}

	env.Resolver = recipe.NewResolver(recipe.NewStore(env.Source))

	env.Fetcher = NewFakeFetcher(recipe.FetcherGit)
	env.Registry = fetch.NewRegistry()
	require.NoError(t, env.Registry.Register(env.Fetcher))

	engine := fingerprint.NewEngineWithClock(func() time.Time { return env.Now })

	cache, err := buildcache.Load(env.Paths.CacheFilePath())
	require.NoError(t, err)
	env.Cache = cache

	env.DB = pkgdb.New(env.Paths.InstalledRoot())
	comparator := version.NewComparator(env.DB, nil)

	env.Builder = builder.New(env.Paths, env.Resolver, env.Registry, engine, env.Cache, env.DB, comparator)
	return env
}

// AddPackage registers a recipe for name and the source files the fake
// fetcher will deliver for it.
func (e *Env) AddPackage(name string, files map[string]string) recipe.Recipe {
	rec := recipe.Recipe{
		Name:    name,
		Fetcher: recipe.FetcherGit,
		URL:     "https://example.com/" + name + ".git",
	}
	e.Source.Put(rec)
	e.Fetcher.SetFiles(name, files)
	return rec
}

// Advance moves the sandbox clock forward.
func (e *Env) Advance(d time.Duration) {
	e.Now = e.Now.Add(d)
}
