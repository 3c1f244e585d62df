package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/logging"
	"github.com/srcget/srcget/pkg/recipe"
)

// defaultWikiBase is where wiki recipes download from when the recipe
// gives a bare page name instead of a full URL.
const defaultWikiBase = "https://www.emacswiki.org/emacs/download"

// URLFetcher downloads a single file over HTTP(S) into the source dir.
type URLFetcher struct {
	client *http.Client
}

// NewURLFetcher creates a URL fetcher with a sane timeout.
func NewURLFetcher() *URLFetcher {
	return &URLFetcher{client: &http.Client{Timeout: 2 * time.Minute}}
}

// Kind implements Fetcher.
func (u *URLFetcher) Kind() recipe.Fetcher { return recipe.FetcherURL }

// Fetch implements Fetcher.
func (u *URLFetcher) Fetch(ctx context.Context, rec recipe.Recipe, destDir string) (Info, error) {
	return download(ctx, u.client, rec.URL, destDir, rec.Name)
}

// WikiFetcher downloads a wiki page's raw form. It is a URL fetcher
// with a base-URL convention: a recipe may give just a name and the
// download URL is derived from it.
type WikiFetcher struct {
	client *http.Client
	base   string
}

// NewWikiFetcher creates a wiki fetcher against the default wiki.
func NewWikiFetcher() *WikiFetcher {
	return &WikiFetcher{
		client: &http.Client{Timeout: 2 * time.Minute},
		base:   defaultWikiBase,
	}
}

// Kind implements Fetcher.
func (w *WikiFetcher) Kind() recipe.Fetcher { return recipe.FetcherWiki }

// Fetch implements Fetcher.
func (w *WikiFetcher) Fetch(ctx context.Context, rec recipe.Recipe, destDir string) (Info, error) {
	pageURL := rec.URL
	if pageURL == "" {
		pageURL = fmt.Sprintf("%s/%s.el", w.base, rec.Name)
	}
	return download(ctx, w.client, pageURL, destDir, rec.Name)
}

func download(ctx context.Context, client *http.Client, rawURL, destDir, pkg string) (Info, error) {
	logger := logging.GetLogger("fetch")

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "malformed url %q for %q", rawURL, pkg)
	}

	filename := path.Base(parsed.Path)
	if filename == "." || filename == "/" || filename == "" {
		filename = pkg + ".el"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "failed to build request for %q", rawURL)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "download failed for %q", rawURL)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Info{}, errors.Newf(errors.ErrFetchFailed, "download of %q returned %s", rawURL, resp.Status)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "failed to create source dir %s", destDir)
	}

	target := filepath.Join(destDir, filename)
	tmp := target + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "failed to create %s", tmp)
	}

	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "failed to write %s", target)
	}
	if err := os.Rename(tmp, target); err != nil {
		return Info{}, errors.Wrapf(err, errors.ErrFetchFailed, "failed to finalize %s", target)
	}

	logger.Debug().Str("package", pkg).Str("url", rawURL).Int64("bytes", written).Msg("Downloaded file")
	return Info{}, nil
}
