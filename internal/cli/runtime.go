// Package cli assembles the srcget runtime: paths, configuration,
// recipe store, fetchers, fingerprint engine, build cache, package
// database, builder, and the deferred queue, wired once per command
// invocation.
package cli

import (
	"path/filepath"

	"github.com/srcget/srcget/pkg/buildcache"
	"github.com/srcget/srcget/pkg/builder"
	"github.com/srcget/srcget/pkg/config"
	"github.com/srcget/srcget/pkg/fetch"
	"github.com/srcget/srcget/pkg/fingerprint"
	"github.com/srcget/srcget/pkg/paths"
	"github.com/srcget/srcget/pkg/pkgdb"
	"github.com/srcget/srcget/pkg/queue"
	"github.com/srcget/srcget/pkg/recipe"
	"github.com/srcget/srcget/pkg/version"
)

// Runtime holds the fully wired collaborators a command works with.
type Runtime struct {
	Paths    paths.Paths
	Config   *config.Config
	Resolver *recipe.Resolver
	Cache    *buildcache.Cache
	DB       *pkgdb.DB
	Builder  *builder.Builder
	Queue    *queue.Queue
}

// NewRuntime constructs the runtime from the environment. Recipe
// directories from the configuration are consulted before the user
// recipe directory, in configured order.
func NewRuntime() (*Runtime, error) {
	p := paths.New()

	cfg, err := config.Load(p)
	if err != nil {
		return nil, err
	}

	var sources []recipe.Source
	for _, dir := range cfg.RecipeDirs {
		sources = append(sources, recipe.NewDirSource(filepath.Base(dir), dir))
	}
	sources = append(sources, recipe.NewDirSource("user", p.RecipeDir()))
	resolver := recipe.NewResolver(recipe.NewStore(sources...))

	cache, err := buildcache.Load(p.CacheFilePath())
	if err != nil {
		return nil, err
	}

	db := pkgdb.New(p.InstalledRoot())
	comparator := version.NewComparator(db, cfg.BuiltinVersions)

	b := builder.New(p, resolver, fetch.DefaultRegistry(), fingerprint.NewEngine(), cache, db, comparator)

	q, err := queue.Load(p.QueueFilePath(), b)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Paths:    p,
		Config:   cfg,
		Resolver: resolver,
		Cache:    cache,
		DB:       db,
		Builder:  b,
		Queue:    q,
	}, nil
}
