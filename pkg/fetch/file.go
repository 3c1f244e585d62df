package fetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/recipe"
	"github.com/srcget/srcget/pkg/utils"
)

// FileFetcher copies a local file or directory tree. The recipe URL is
// a filesystem path, optionally with a file:// prefix.
type FileFetcher struct{}

// NewFileFetcher creates a local-file fetcher.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Kind implements Fetcher.
func (f *FileFetcher) Kind() recipe.Fetcher { return recipe.FetcherFile }

// Fetch implements Fetcher.
func (f *FileFetcher) Fetch(ctx context.Context, rec recipe.Recipe, destDir string) (Info, error) {
	src := utils.ExpandPath(strings.TrimPrefix(rec.URL, "file://"))

	info, err := os.Stat(src)
	if err != nil {
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "local source %s is not readable", src)
	}

	// Refresh the destination wholesale; local trees are cheap to copy
	if err := os.RemoveAll(destDir); err != nil {
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "failed to clear source dir %s", destDir)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "failed to create source dir %s", destDir)
	}

	if info.IsDir() {
		if err := utils.CopyTree(src, destDir); err != nil {
			return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "failed to copy tree from %s", src)
		}
		return Info{}, nil
	}

	if err := utils.CopyFile(src, filepath.Join(destDir, info.Name()), info.Mode().Perm()); err != nil {
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "failed to copy %s", src)
	}
	return Info{}, nil
}
