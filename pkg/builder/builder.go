// Package builder orchestrates the full request path for one package:
// resolve the recipe, fetch the source tree, run the fingerprint check
// (rebuilding only when the source changed), extract the descriptor,
// install into the package database, and record the recipe in the
// build cache.
package builder

import (
	"context"
	"path/filepath"

	"github.com/srcget/srcget/pkg/buildcache"
	"github.com/srcget/srcget/pkg/bundle"
	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/fetch"
	"github.com/srcget/srcget/pkg/fingerprint"
	"github.com/srcget/srcget/pkg/logging"
	"github.com/srcget/srcget/pkg/paths"
	"github.com/srcget/srcget/pkg/pkgdb"
	"github.com/srcget/srcget/pkg/recipe"
	"github.com/srcget/srcget/pkg/version"
)

// Options are the recognized request options.
type Options struct {
	// Stable prefers tagged releases over snapshots. Flipping it
	// changes the recipe observably, so the build cache records the
	// difference.
	Stable bool

	// Upgrade forces rebuild and reinstall even when the installed
	// version is current.
	Upgrade bool

	// Defer enqueues the request instead of building now. The builder
	// itself ignores it; the queue strips it before deferring.
	Defer bool
}

// Result reports what one install request did.
type Result struct {
	// Descriptor is the post-build package descriptor.
	Descriptor bundle.Descriptor

	// Rebuilt reports whether the source had changed and the bundle
	// was rebuilt, as opposed to a fingerprint no-op reuse.
	Rebuilt bool

	// Installed reports whether the package database was updated.
	// False means the installed version was already current.
	Installed bool
}

// Built is an intermediate build product: everything known about a
// package after fetch and fingerprint check but before installation.
type Built struct {
	Recipe     recipe.Recipe
	Descriptor bundle.Descriptor
	BundleDir  string
	Rebuilt    bool
}

// Builder wires the resolver, fetchers, fingerprint engine, build
// cache, and package database into one request path. All state is
// passed in explicitly; a fresh Builder over fresh state is fully
// isolated.
type Builder struct {
	paths      paths.Paths
	resolver   *recipe.Resolver
	fetchers   *fetch.Registry
	engine     *fingerprint.Engine
	cache      *buildcache.Cache
	db         *pkgdb.DB
	comparator *version.Comparator
}

// New creates a builder over the given collaborators.
func New(
	p paths.Paths,
	resolver *recipe.Resolver,
	fetchers *fetch.Registry,
	engine *fingerprint.Engine,
	cache *buildcache.Cache,
	db *pkgdb.DB,
	comparator *version.Comparator,
) *Builder {
	return &Builder{
		paths:      p,
		resolver:   resolver,
		fetchers:   fetchers,
		engine:     engine,
		cache:      cache,
		db:         db,
		comparator: comparator,
	}
}

// DB exposes the package database for read-only queries.
func (b *Builder) DB() *pkgdb.DB { return b.db }

// Cache exposes the build cache for read-only queries.
func (b *Builder) Cache() *buildcache.Cache { return b.cache }

// Build resolves, fetches, and fingerprints a package without
// installing it. The descriptor it returns is the only place a
// package's dependencies become known.
func (b *Builder) Build(ctx context.Context, d recipe.Designator, opts Options) (*Built, error) {
	logger := logging.GetLogger("builder")
	defer logging.LogOperationStart(logger, "build")()

	rec, err := b.resolver.Resolve(d)
	if err != nil {
		return nil, err
	}
	if opts.Stable {
		rec.Stable = true
	}

	fetcher, err := b.fetchers.Get(rec.Fetcher)
	if err != nil {
		return nil, err
	}

	sourceDir := b.paths.SourceDir(rec.Name)
	info, err := fetcher.Fetch(ctx, rec, sourceDir)
	if err != nil {
		return nil, err
	}

	sourceRoot := sourceDir
	if rec.Subdir != "" {
		sourceRoot = filepath.Join(sourceDir, rec.Subdir)
	}

	buildDir := b.paths.BuildDir(rec.Name)
	res, err := b.engine.Check(fingerprint.Request{
		Recipe:          rec,
		SourceDir:       sourceRoot,
		BuildDir:        buildDir,
		RecordPath:      b.paths.FingerprintPath(rec.Name),
		UpstreamVersion: info.UpstreamVersion,
		Pack: func(stagingDir string) error {
			return bundle.Build(rec, sourceRoot, stagingDir)
		},
	})
	if err != nil {
		return nil, err
	}

	desc, err := bundle.Describe(buildDir, rec.Name, res.Stamp)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("package", rec.Name).
		Str("version", desc.Version).
		Bool("rebuilt", res.Rebuilt).
		Int("dependencies", len(desc.Dependencies)).
		Msg("Package built")

	return &Built{
		Recipe:     rec,
		Descriptor: desc,
		BundleDir:  buildDir,
		Rebuilt:    res.Rebuilt,
	}, nil
}

// Install runs the full request path synchronously. The package
// database is only touched when the built version is newer than the
// installed one or Upgrade is set; either way a completed build is
// recorded in the cache.
func (b *Builder) Install(ctx context.Context, d recipe.Designator, opts Options) (*Result, error) {
	logger := logging.GetLogger("builder")
	defer logging.LogOperationStart(logger, "install")()

	built, err := b.Build(ctx, d, opts)
	if err != nil {
		return nil, err
	}

	name := built.Descriptor.Name
	installed := false
	if opts.Upgrade || b.comparator.IsNewer(name, built.Descriptor.Version) {
		if err := b.db.Install(built.BundleDir, built.Descriptor); err != nil {
			return nil, err
		}
		installed = true
	} else {
		logger.Info().
			Str("package", name).
			Str("version", built.Descriptor.Version).
			Msg("Already up to date")
	}

	if err := b.record(built.Recipe); err != nil {
		return nil, err
	}

	return &Result{
		Descriptor: built.Descriptor,
		Rebuilt:    built.Rebuilt,
		Installed:  installed,
	}, nil
}

// InstallBuilt installs a previously built package unconditionally and
// records its recipe. Used by the deferred queue, which makes its own
// dependency-based decision about when to install.
func (b *Builder) InstallBuilt(built *Built) error {
	if err := b.db.Install(built.BundleDir, built.Descriptor); err != nil {
		return err
	}
	return b.record(built.Recipe)
}

// record updates the cache entry and persists it. Runs only after the
// corresponding build or install fully succeeded.
func (b *Builder) record(rec recipe.Recipe) error {
	b.cache.Record(rec)
	if err := b.cache.Flush(); err != nil {
		return err
	}
	return nil
}

// Remove uninstalls a package and drops its cache entry.
func (b *Builder) Remove(name string) error {
	if err := b.db.Remove(name); err != nil {
		return err
	}
	b.cache.Remove(name)
	if err := b.cache.Flush(); err != nil {
		return err
	}
	return nil
}

// AsyncResult is the completion report of an asynchronous install.
type AsyncResult struct {
	Name   string
	Result *Result
	Err    error
}

// InstallAsync runs Install off the caller's line of control and
// reports completion on the returned channel. The path is identical to
// the synchronous one; only the scheduling differs.
func (b *Builder) InstallAsync(ctx context.Context, d recipe.Designator, opts Options) <-chan AsyncResult {
	done := make(chan AsyncResult, 1)
	go func() {
		res, err := b.Install(ctx, d, opts)
		done <- AsyncResult{Name: d.String(), Result: res, Err: err}
		close(done)
	}()
	return done
}

// ErrNotInstalled reports whether err is the not-installed condition
// from Remove.
func ErrNotInstalled(err error) bool {
	return errors.IsErrorCode(err, errors.ErrNotFound)
}
