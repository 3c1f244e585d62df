package recipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcget/srcget/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		recipe  Recipe
		wantErr bool
	}{
		{
			name:   "valid git recipe",
			recipe: Recipe{Name: "magit", Fetcher: FetcherGit, URL: "https://github.com/magit/magit.git"},
		},
		{
			name:   "valid url recipe with version type",
			recipe: Recipe{Name: "single", Fetcher: FetcherURL, URL: "https://example.com/single.el", VersionType: VersionUpstream},
		},
		{
			name:    "missing name",
			recipe:  Recipe{Fetcher: FetcherGit, URL: "https://example.com/r.git"},
			wantErr: true,
		},
		{
			name:    "unknown fetcher",
			recipe:  Recipe{Name: "x", Fetcher: "ftp", URL: "ftp://example.com"},
			wantErr: true,
		},
		{
			name:    "missing url",
			recipe:  Recipe{Name: "x", Fetcher: FetcherGit},
			wantErr: true,
		},
		{
			name:    "unknown version type",
			recipe:  Recipe{Name: "x", Fetcher: FetcherGit, URL: "u", VersionType: "semver"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.recipe.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, errors.ErrRecipeInvalid))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNameOnly(t *testing.T) {
	assert.True(t, Recipe{Name: "magit"}.NameOnly())
	assert.False(t, Recipe{Name: "magit", Fetcher: FetcherGit}.NameOnly())
	assert.False(t, Recipe{Name: "magit", Stable: true}.NameOnly())
	assert.False(t, Recipe{Name: "magit", Files: []string{"*.el"}}.NameOnly())
}

func TestEffectiveVersionType(t *testing.T) {
	assert.Equal(t, VersionSnapshot, Recipe{}.EffectiveVersionType())
	assert.Equal(t, VersionUpstream, Recipe{VersionType: VersionUpstream}.EffectiveVersionType())
}

func TestSelectFilesDefaultRule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.el", "a")
	writeFile(t, dir, "lisp/extra.el", "b")
	writeFile(t, dir, "README.md", "c")

	rec := Recipe{Name: "p"}
	files, err := rec.SelectFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "lisp/extra.el", "main.el"}, files)
}

func TestSelectFilesGlobRules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.el", "a")
	writeFile(t, dir, "lisp/extra.el", "b")
	writeFile(t, dir, "lisp/deep/nested.el", "c")
	writeFile(t, dir, "README.md", "d")
	writeFile(t, dir, "Makefile", "e")

	tests := []struct {
		name  string
		rules []string
		want  []string
	}{
		{
			name:  "basename pattern matches any directory",
			rules: []string{"*.el"},
			want:  []string{"lisp/deep/nested.el", "lisp/extra.el", "main.el"},
		},
		{
			name:  "path pattern matches one level",
			rules: []string{"lisp/*.el"},
			want:  []string{"lisp/extra.el"},
		},
		{
			name:  "multiple rules union",
			rules: []string{"*.el", "Makefile"},
			want:  []string{"Makefile", "lisp/deep/nested.el", "lisp/extra.el", "main.el"},
		},
		{
			name:  "no match",
			rules: []string{"*.txt"},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Recipe{Name: "p", Files: tt.rules}
			files, err := rec.SelectFiles(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, files)
		})
	}
}

func TestSelectFilesMalformedPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.el", "a")

	rec := Recipe{Name: "p", Files: []string{"[unclosed"}}
	_, err := rec.SelectFiles(dir)
	require.Error(t, err)
}

func TestRenderRoundTrips(t *testing.T) {
	rec := Recipe{
		Name:    "magit",
		Fetcher: FetcherGit,
		URL:     "https://github.com/magit/magit.git",
		Branch:  "main",
		Files:   []string{"*.el", "lisp/*.el"},
		Stable:  true,
	}

	out, err := rec.Render()
	require.NoError(t, err)
	assert.Contains(t, out, `name = 'magit'`)
	assert.Contains(t, out, `fetcher = 'git'`)
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
