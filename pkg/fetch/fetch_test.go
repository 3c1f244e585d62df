package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/recipe"
)

func TestDefaultRegistryCoversAllKinds(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{"bzr", "file", "git", "hg", "svn", "url", "wiki"}, r.Kinds())

	for _, kind := range []recipe.Fetcher{
		recipe.FetcherGit, recipe.FetcherHg, recipe.FetcherSvn, recipe.FetcherBzr,
		recipe.FetcherWiki, recipe.FetcherURL, recipe.FetcherFile,
	} {
		f, err := r.Get(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, f.Kind())
	}
}

func TestRegistryUnknownKind(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get(recipe.FetcherGit)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFetcherUnknown))
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewGitFetcher()))

	err := r.Register(NewGitFetcher())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))
}

func TestFileFetcherCopiesTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "lisp"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.el"), []byte("root"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lisp", "sub.el"), []byte("sub"), 0644))

	dest := filepath.Join(t.TempDir(), "checkout")
	rec := recipe.Recipe{Name: "local", Fetcher: recipe.FetcherFile, URL: src}

	_, err := NewFileFetcher().Fetch(context.Background(), rec, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "lisp", "sub.el"))
	require.NoError(t, err)
	assert.Equal(t, "sub", string(data))
}

func TestFileFetcherSingleFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "single.el")
	require.NoError(t, os.WriteFile(src, []byte("contents"), 0644))

	dest := filepath.Join(t.TempDir(), "checkout")
	rec := recipe.Recipe{Name: "single", Fetcher: recipe.FetcherFile, URL: "file://" + src}

	_, err := NewFileFetcher().Fetch(context.Background(), rec, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "single.el"))
	require.NoError(t, err)
	assert.Equal(t, "contents", string(data))
}

func TestFileFetcherMissingSource(t *testing.T) {
	rec := recipe.Recipe{Name: "gone", Fetcher: recipe.FetcherFile, URL: "/does/not/exist"}

	_, err := NewFileFetcher().Fetch(context.Background(), rec, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFetchFailed))
}

func TestURLFetcherDownloads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ";;; downloaded.el")
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "checkout")
	rec := recipe.Recipe{Name: "pkg", Fetcher: recipe.FetcherURL, URL: server.URL + "/downloaded.el"}

	_, err := NewURLFetcher().Fetch(context.Background(), rec, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "downloaded.el"))
	require.NoError(t, err)
	assert.Equal(t, ";;; downloaded.el", string(data))
}

func TestURLFetcherHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	rec := recipe.Recipe{Name: "pkg", Fetcher: recipe.FetcherURL, URL: server.URL + "/missing.el"}

	_, err := NewURLFetcher().Fetch(context.Background(), rec, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFetchFailed))
}

func TestWikiFetcherDerivesURLFromName(t *testing.T) {
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		fmt.Fprint(w, "wiki content")
	}))
	defer server.Close()

	f := NewWikiFetcher()
	f.base = server.URL

	dest := filepath.Join(t.TempDir(), "checkout")
	rec := recipe.Recipe{Name: "rainbow-mode", Fetcher: recipe.FetcherWiki}

	_, err := f.Fetch(context.Background(), rec, dest)
	require.NoError(t, err)
	assert.Equal(t, "/rainbow-mode.el", requested)

	_, err = os.Stat(filepath.Join(dest, "rainbow-mode.el"))
	assert.NoError(t, err)
}

// recordingRunner captures VCS invocations instead of executing them.
type recordingRunner struct {
	calls   []string
	outputs map[string]string
	fail    string
}

func (r *recordingRunner) run(ctx context.Context, dir, tool string, args ...string) (string, error) {
	call := tool + " " + strings.Join(args, " ")
	r.calls = append(r.calls, call)
	if r.fail != "" && strings.HasPrefix(call, r.fail) {
		return "", errors.Newf(errors.ErrFetchFailed, "%s failed", call)
	}
	for prefix, out := range r.outputs {
		if strings.HasPrefix(call, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func TestGitFetcherClonesFreshCheckout(t *testing.T) {
	rr := &recordingRunner{outputs: map[string]string{"git describe": "v2.1.0\n"}}
	g := &GitFetcher{run: rr.run}

	dest := filepath.Join(t.TempDir(), "magit")
	rec := recipe.Recipe{Name: "magit", Fetcher: recipe.FetcherGit, URL: "https://example.com/magit.git", Branch: "main"}

	info, err := g.Fetch(context.Background(), rec, dest)
	require.NoError(t, err)

	require.NotEmpty(t, rr.calls)
	assert.Equal(t, "git clone --branch main https://example.com/magit.git "+dest, rr.calls[0])
	assert.Equal(t, "v2.1.0", info.UpstreamVersion)
}

func TestGitFetcherUpdatesExistingCheckout(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "magit")
	require.NoError(t, os.MkdirAll(filepath.Join(dest, ".git"), 0755))

	rr := &recordingRunner{}
	g := &GitFetcher{run: rr.run}
	rec := recipe.Recipe{Name: "magit", Fetcher: recipe.FetcherGit, URL: "https://example.com/magit.git"}

	_, err := g.Fetch(context.Background(), rec, dest)
	require.NoError(t, err)

	assert.Contains(t, rr.calls, "git fetch --tags origin")
	assert.Contains(t, rr.calls, "git pull --ff-only")
}

func TestGitFetcherPinsCommit(t *testing.T) {
	rr := &recordingRunner{}
	g := &GitFetcher{run: rr.run}

	dest := filepath.Join(t.TempDir(), "pinned")
	rec := recipe.Recipe{Name: "pinned", Fetcher: recipe.FetcherGit, URL: "u", Commit: "abc123"}

	_, err := g.Fetch(context.Background(), rec, dest)
	require.NoError(t, err)
	assert.Contains(t, rr.calls, "git checkout abc123")
}

func TestGitFetcherStableChecksOutLatestTag(t *testing.T) {
	rr := &recordingRunner{outputs: map[string]string{"git describe": "v1.4.2\n"}}
	g := &GitFetcher{run: rr.run}

	dest := filepath.Join(t.TempDir(), "stable")
	rec := recipe.Recipe{Name: "stable", Fetcher: recipe.FetcherGit, URL: "u", Stable: true}

	info, err := g.Fetch(context.Background(), rec, dest)
	require.NoError(t, err)
	assert.Contains(t, rr.calls, "git checkout v1.4.2")
	assert.Equal(t, "v1.4.2", info.UpstreamVersion)
}

func TestGitFetcherCloneFailure(t *testing.T) {
	rr := &recordingRunner{fail: "git clone"}
	g := &GitFetcher{run: rr.run}

	rec := recipe.Recipe{Name: "x", Fetcher: recipe.FetcherGit, URL: "u"}
	_, err := g.Fetch(context.Background(), rec, filepath.Join(t.TempDir(), "x"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFetchFailed))
}

func TestHgFetcherCloneAndUpdate(t *testing.T) {
	rr := &recordingRunner{outputs: map[string]string{"hg log": "1.2\n"}}
	h := &HgFetcher{run: rr.run}

	dest := filepath.Join(t.TempDir(), "evil")
	rec := recipe.Recipe{Name: "evil", Fetcher: recipe.FetcherHg, URL: "https://hg.example.com/evil"}

	info, err := h.Fetch(context.Background(), rec, dest)
	require.NoError(t, err)
	assert.Equal(t, "hg clone https://hg.example.com/evil "+dest, rr.calls[0])
	assert.Equal(t, "1.2", info.UpstreamVersion)

	require.NoError(t, os.MkdirAll(filepath.Join(dest, ".hg"), 0755))
	rr.calls = nil

	_, err = h.Fetch(context.Background(), rec, dest)
	require.NoError(t, err)
	assert.Contains(t, rr.calls, "hg pull -u")
}

func TestHgFetcherNullTag(t *testing.T) {
	rr := &recordingRunner{outputs: map[string]string{"hg log": "null\n"}}
	h := &HgFetcher{run: rr.run}

	rec := recipe.Recipe{Name: "evil", Fetcher: recipe.FetcherHg, URL: "u"}
	info, err := h.Fetch(context.Background(), rec, filepath.Join(t.TempDir(), "evil"))
	require.NoError(t, err)
	assert.Empty(t, info.UpstreamVersion)
}

func TestSvnAndBzrFetchers(t *testing.T) {
	rr := &recordingRunner{}
	s := &SvnFetcher{run: rr.run}
	b := &BzrFetcher{run: rr.run}

	destSvn := filepath.Join(t.TempDir(), "svnpkg")
	_, err := s.Fetch(context.Background(), recipe.Recipe{Name: "svnpkg", Fetcher: recipe.FetcherSvn, URL: "svn://example.com/r"}, destSvn)
	require.NoError(t, err)
	assert.Equal(t, "svn checkout svn://example.com/r "+destSvn, rr.calls[0])

	destBzr := filepath.Join(t.TempDir(), "bzrpkg")
	rr.calls = nil
	_, err = b.Fetch(context.Background(), recipe.Recipe{Name: "bzrpkg", Fetcher: recipe.FetcherBzr, URL: "lp:pkg"}, destBzr)
	require.NoError(t, err)
	assert.Equal(t, "bzr branch lp:pkg "+destBzr, rr.calls[0])
}
