// Package recipe defines the build recipe model, the layered recipe
// store, and the resolver that turns package designators into
// fully-qualified recipes.
package recipe

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/srcget/srcget/pkg/errors"
)

// Fetcher identifies the transport used to obtain a source tree.
// The set is closed; dispatch is by lookup table, never reflection.
type Fetcher string

const (
	FetcherGit  Fetcher = "git"
	FetcherHg   Fetcher = "hg"
	FetcherSvn  Fetcher = "svn"
	FetcherBzr  Fetcher = "bzr"
	FetcherWiki Fetcher = "wiki"
	FetcherURL  Fetcher = "url"
	FetcherFile Fetcher = "file"
)

// Valid reports whether f is one of the known fetcher kinds.
func (f Fetcher) Valid() bool {
	switch f {
	case FetcherGit, FetcherHg, FetcherSvn, FetcherBzr, FetcherWiki, FetcherURL, FetcherFile:
		return true
	}
	return false
}

// VersionType selects how a package's version stamp is computed.
type VersionType string

const (
	// VersionSnapshot stamps builds with the fetch-time timestamp.
	VersionSnapshot VersionType = "snapshot"

	// VersionUpstream stamps builds with the fetcher-reported
	// upstream version (tag or declared release).
	VersionUpstream VersionType = "upstream"
)

// Recipe describes how to fetch and package one source tree.
// Name plus Fetcher plus the fetcher's required fields must be
// sufficient to fetch the tree deterministically at a point in time.
type Recipe struct {
	// Name is the package name, the primary key across all stores.
	Name string `toml:"name" yaml:"name"`

	// Fetcher selects the transport.
	Fetcher Fetcher `toml:"fetcher,omitempty" yaml:"fetcher,omitempty"`

	// URL is the repository or file URL, fetcher dependent.
	URL string `toml:"url,omitempty" yaml:"url,omitempty"`

	// Branch pins a branch for VCS fetchers.
	Branch string `toml:"branch,omitempty" yaml:"branch,omitempty"`

	// Commit pins an exact revision for VCS fetchers.
	Commit string `toml:"commit,omitempty" yaml:"commit,omitempty"`

	// Subdir restricts the package to a subdirectory of the checkout.
	Subdir string `toml:"subdir,omitempty" yaml:"subdir,omitempty"`

	// Files selects which files of the source tree are packaged and
	// fingerprinted. Empty means the whole tree.
	Files []string `toml:"files,omitempty" yaml:"files,omitempty"`

	// VersionType selects the version stamp scheme. Empty means snapshot.
	VersionType VersionType `toml:"version_type,omitempty" yaml:"version_type,omitempty"`

	// Stable prefers tagged releases over development snapshots.
	Stable bool `toml:"stable,omitempty" yaml:"stable,omitempty"`
}

// NameOnly reports whether the recipe carries nothing beyond a name,
// i.e. it is a lookup designator rather than a usable recipe.
func (r Recipe) NameOnly() bool {
	return r.Fetcher == "" && r.URL == "" && r.Branch == "" && r.Commit == "" &&
		r.Subdir == "" && len(r.Files) == 0 && r.VersionType == "" && !r.Stable
}

// Validate checks the fetch-determinism invariant.
func (r Recipe) Validate() error {
	if r.Name == "" {
		return errors.New(errors.ErrRecipeInvalid, "recipe has no name")
	}
	if !r.Fetcher.Valid() {
		return errors.Newf(errors.ErrRecipeInvalid, "recipe %q has unknown fetcher %q", r.Name, r.Fetcher)
	}
	if r.URL == "" {
		return errors.Newf(errors.ErrRecipeInvalid, "recipe %q (%s) has no url", r.Name, r.Fetcher)
	}
	if r.VersionType != "" && r.VersionType != VersionSnapshot && r.VersionType != VersionUpstream {
		return errors.Newf(errors.ErrRecipeInvalid, "recipe %q has unknown version_type %q", r.Name, r.VersionType)
	}
	return nil
}

// EffectiveVersionType resolves the default version scheme.
func (r Recipe) EffectiveVersionType() VersionType {
	if r.VersionType == "" {
		return VersionSnapshot
	}
	return r.VersionType
}

// Render serializes the recipe as TOML, the same format recipe files
// use on disk. Used by the resolver's inspection form.
func (r Recipe) Render() (string, error) {
	out, err := toml.Marshal(r)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInternal, "failed to render recipe %q", r.Name)
	}
	return string(out), nil
}

// SelectFiles expands the recipe's file selection rule against a source
// directory and returns the matching regular files as sorted
// slash-separated paths relative to dir.
//
// Rule semantics: an empty rule selects every regular file. A pattern
// containing a slash matches against the full relative path; a pattern
// without a slash matches against the base name in any directory.
func (r Recipe) SelectFiles(dir string) ([]string, error) {
	var selected []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ok, err := r.matches(rel)
		if err != nil {
			return err
		}
		if ok {
			selected = append(selected, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRecipeStore, "failed to expand file selection for %q", r.Name)
	}

	sort.Strings(selected)
	return selected, nil
}

func (r Recipe) matches(rel string) (bool, error) {
	if len(r.Files) == 0 {
		return true, nil
	}
	for _, pattern := range r.Files {
		candidate := rel
		if !strings.Contains(pattern, "/") {
			candidate = filepath.Base(rel)
		}
		ok, err := filepath.Match(pattern, candidate)
		if err != nil {
			return false, errors.Newf(errors.ErrRecipeInvalid, "recipe %q has malformed file pattern %q", r.Name, pattern)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
