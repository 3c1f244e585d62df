package fetch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/logging"
	"github.com/srcget/srcget/pkg/recipe"
)

// runner executes a VCS command in a working directory and returns its
// combined output. Injectable so tests can record invocations without
// the tools installed.
type runner func(ctx context.Context, dir, tool string, args ...string) (string, error)

func execRunner(ctx context.Context, dir, tool string, args ...string) (string, error) {
	logger := logging.GetLogger("fetch")
	logger.Debug().Str("tool", tool).Strs("args", args).Str("dir", dir).Msg("Running VCS command")

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), errors.Wrapf(err, errors.ErrFetchFailed,
			"%s %s failed: %s", tool, strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// GitFetcher fetches git repositories, cloning on first fetch and
// updating in place afterwards.
type GitFetcher struct {
	run runner
}

// NewGitFetcher creates a git fetcher shelling out to the git CLI.
func NewGitFetcher() *GitFetcher {
	return &GitFetcher{run: execRunner}
}

// Kind implements Fetcher.
func (g *GitFetcher) Kind() recipe.Fetcher { return recipe.FetcherGit }

// Fetch implements Fetcher.
func (g *GitFetcher) Fetch(ctx context.Context, rec recipe.Recipe, destDir string) (Info, error) {
	cloned, err := ensureWorkDir(destDir, ".git")
	if err != nil {
		return Info{}, err
	}

	if !cloned {
		args := []string{"clone"}
		if rec.Branch != "" {
			args = append(args, "--branch", rec.Branch)
		}
		args = append(args, rec.URL, destDir)
		if _, err := g.run(ctx, "", "git", args...); err != nil {
			return Info{}, err
		}
	} else {
		if _, err := g.run(ctx, destDir, "git", "fetch", "--tags", "origin"); err != nil {
			return Info{}, err
		}
		if rec.Commit == "" {
			if _, err := g.run(ctx, destDir, "git", "pull", "--ff-only"); err != nil {
				return Info{}, err
			}
		}
	}

	switch {
	case rec.Commit != "":
		if _, err := g.run(ctx, destDir, "git", "checkout", rec.Commit); err != nil {
			return Info{}, err
		}
	case rec.Stable:
		// Prefer the most recent reachable tag for stable requests
		if tag := g.latestTag(ctx, destDir); tag != "" {
			if _, err := g.run(ctx, destDir, "git", "checkout", tag); err != nil {
				return Info{}, err
			}
			return Info{UpstreamVersion: tag}, nil
		}
	}

	return Info{UpstreamVersion: g.latestTag(ctx, destDir)}, nil
}

// latestTag is best-effort; repositories without tags report nothing.
func (g *GitFetcher) latestTag(ctx context.Context, destDir string) string {
	out, err := g.run(ctx, destDir, "git", "describe", "--tags", "--abbrev=0")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// HgFetcher fetches mercurial repositories.
type HgFetcher struct {
	run runner
}

// NewHgFetcher creates a mercurial fetcher shelling out to the hg CLI.
func NewHgFetcher() *HgFetcher {
	return &HgFetcher{run: execRunner}
}

// Kind implements Fetcher.
func (h *HgFetcher) Kind() recipe.Fetcher { return recipe.FetcherHg }

// Fetch implements Fetcher.
func (h *HgFetcher) Fetch(ctx context.Context, rec recipe.Recipe, destDir string) (Info, error) {
	cloned, err := ensureWorkDir(destDir, ".hg")
	if err != nil {
		return Info{}, err
	}

	if !cloned {
		if _, err := h.run(ctx, "", "hg", "clone", rec.URL, destDir); err != nil {
			return Info{}, err
		}
	} else {
		if _, err := h.run(ctx, destDir, "hg", "pull", "-u"); err != nil {
			return Info{}, err
		}
	}

	out, err := h.run(ctx, destDir, "hg", "log", "-r", ".", "--template", "{latesttag}")
	if err != nil {
		return Info{}, nil
	}
	tag := strings.TrimSpace(out)
	if tag == "null" {
		tag = ""
	}
	return Info{UpstreamVersion: tag}, nil
}

// SvnFetcher fetches subversion repositories.
type SvnFetcher struct {
	run runner
}

// NewSvnFetcher creates a subversion fetcher shelling out to the svn CLI.
func NewSvnFetcher() *SvnFetcher {
	return &SvnFetcher{run: execRunner}
}

// Kind implements Fetcher.
func (s *SvnFetcher) Kind() recipe.Fetcher { return recipe.FetcherSvn }

// Fetch implements Fetcher.
func (s *SvnFetcher) Fetch(ctx context.Context, rec recipe.Recipe, destDir string) (Info, error) {
	checkedOut, err := ensureWorkDir(destDir, ".svn")
	if err != nil {
		return Info{}, err
	}

	if !checkedOut {
		if _, err := s.run(ctx, "", "svn", "checkout", rec.URL, destDir); err != nil {
			return Info{}, err
		}
		return Info{}, nil
	}
	if _, err := s.run(ctx, destDir, "svn", "update"); err != nil {
		return Info{}, err
	}
	return Info{}, nil
}

// BzrFetcher fetches bazaar branches.
type BzrFetcher struct {
	run runner
}

// NewBzrFetcher creates a bazaar fetcher shelling out to the bzr CLI.
func NewBzrFetcher() *BzrFetcher {
	return &BzrFetcher{run: execRunner}
}

// Kind implements Fetcher.
func (b *BzrFetcher) Kind() recipe.Fetcher { return recipe.FetcherBzr }

// Fetch implements Fetcher.
func (b *BzrFetcher) Fetch(ctx context.Context, rec recipe.Recipe, destDir string) (Info, error) {
	branched, err := ensureWorkDir(destDir, ".bzr")
	if err != nil {
		return Info{}, err
	}

	if !branched {
		if _, err := b.run(ctx, "", "bzr", "branch", rec.URL, destDir); err != nil {
			return Info{}, err
		}
		return Info{}, nil
	}
	if _, err := b.run(ctx, destDir, "bzr", "pull"); err != nil {
		return Info{}, err
	}
	return Info{}, nil
}

// ensureWorkDir reports whether destDir already holds a checkout
// (marked by the VCS control dir) and creates its parent otherwise.
func ensureWorkDir(destDir, controlDir string) (bool, error) {
	if _, err := os.Stat(filepath.Join(destDir, controlDir)); err == nil {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(destDir), 0755); err != nil {
		return false, errors.Wrapf(err, errors.ErrFetchFailed, "failed to create source root for %s", destDir)
	}
	// A stale non-checkout directory would confuse clone; clear it
	if err := os.RemoveAll(destDir); err != nil {
		return false, errors.Wrapf(err, errors.ErrFetchFailed, "failed to clear stale source dir %s", destDir)
	}
	return false, nil
}
