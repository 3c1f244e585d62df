package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/recipe"
	"github.com/srcget/srcget/pkg/utils"
)

type fixture struct {
	engine     *Engine
	rec        recipe.Recipe
	sourceDir  string
	buildDir   string
	recordPath string
	packCalls  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	f := &fixture{
		rec:        recipe.Recipe{Name: "dash", Fetcher: recipe.FetcherGit, URL: "https://example.com/dash.git"},
		sourceDir:  filepath.Join(root, "sources", "dash"),
		buildDir:   filepath.Join(root, "build", "dash"),
		recordPath: filepath.Join(root, "build", "dash.fingerprint.toml"),
	}
	require.NoError(t, os.MkdirAll(f.sourceDir, 0755))

	clock := time.Date(2014, 4, 6, 16, 13, 0, 0, time.UTC)
	f.engine = NewEngineWithClock(func() time.Time { return clock })
	return f
}

func (f *fixture) check(t *testing.T) Result {
	t.Helper()
	res, err := f.engine.Check(f.request())
	require.NoError(t, err)
	return res
}

func (f *fixture) request() Request {
	return Request{
		Recipe:     f.rec,
		SourceDir:  f.sourceDir,
		BuildDir:   f.buildDir,
		RecordPath: f.recordPath,
		Pack: func(staging string) error {
			f.packCalls++
			return utils.CopyTree(f.sourceDir, staging)
		},
	}
}

func (f *fixture) writeSource(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.sourceDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestFirstBuildStampsAndPacks(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "dash.el", ";;; dash.el")

	res := f.check(t)

	assert.True(t, res.Rebuilt)
	assert.Equal(t, "20140406.1613", res.Stamp)
	assert.Equal(t, 1, f.packCalls)

	data, err := os.ReadFile(filepath.Join(f.buildDir, "dash.el"))
	require.NoError(t, err)
	assert.Equal(t, ";;; dash.el", string(data))

	rec, ok, err := ReadRecord(f.recordPath)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.Hash, rec.Hash)
	assert.Equal(t, "20140406.1613", rec.Stamp)
}

func TestUnchangedSourceReusesStampWithoutMutation(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "dash.el", ";;; dash.el")

	first := f.check(t)
	require.True(t, first.Rebuilt)

	buildInfoBefore, err := os.Stat(f.buildDir)
	require.NoError(t, err)

	// Move the clock forward; the reused stamp must not change
	f.engine = NewEngineWithClock(func() time.Time {
		return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	second := f.check(t)
	assert.False(t, second.Rebuilt)
	assert.Equal(t, first.Stamp, second.Stamp)
	assert.Equal(t, 1, f.packCalls, "pack must not run on the reuse path")

	buildInfoAfter, err := os.Stat(f.buildDir)
	require.NoError(t, err)
	assert.Equal(t, buildInfoBefore.ModTime(), buildInfoAfter.ModTime(), "build dir must be untouched")
}

func TestChangedSourceRebuildsWithNewStamp(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "dash.el", "v1")
	first := f.check(t)

	f.writeSource(t, "dash.el", "v2")
	f.engine = NewEngineWithClock(func() time.Time {
		return time.Date(2014, 4, 7, 9, 0, 0, 0, time.UTC)
	})

	second := f.check(t)
	assert.True(t, second.Rebuilt)
	assert.NotEqual(t, first.Hash, second.Hash)
	assert.Equal(t, "20140407.0900", second.Stamp)

	data, err := os.ReadFile(filepath.Join(f.buildDir, "dash.el"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestStaleStoredHashTriggersRebuildThenStabilizes(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "dash.el", "content")

	// A stale record whose hash cannot match the current source
	require.NoError(t, WriteRecord(f.recordPath, Record{Hash: "old", Stamp: "19990101.0000"}))

	first := f.check(t)
	assert.True(t, first.Rebuilt)
	assert.Equal(t, "20140406.1613", first.Stamp)

	stored, ok, err := ReadRecord(f.recordPath)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.Hash, stored.Hash)

	// Content now matches the stored hash: same stamp, no rebuild
	second := f.check(t)
	assert.False(t, second.Rebuilt)
	assert.Equal(t, first.Stamp, second.Stamp)
}

func TestUpstreamModeUsesFetcherVersion(t *testing.T) {
	f := newFixture(t)
	f.rec.VersionType = recipe.VersionUpstream
	f.writeSource(t, "dash.el", "content")

	req := f.request()
	req.UpstreamVersion = "2.19.1"
	res, err := f.engine.Check(req)
	require.NoError(t, err)

	assert.True(t, res.Rebuilt)
	assert.Equal(t, "2.19.1", res.Stamp)
}

func TestUpstreamModeFallsBackToSnapshotWhenUnreported(t *testing.T) {
	f := newFixture(t)
	f.rec.VersionType = recipe.VersionUpstream
	f.writeSource(t, "dash.el", "content")

	res := f.check(t)
	assert.Equal(t, "20140406.1613", res.Stamp)
}

func TestRecipeChangeAloneTriggersRebuild(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "dash.el", "content")
	first := f.check(t)

	// Same source bytes, different recipe: the stability flag flip
	// must be observable in the fingerprint
	f.rec.Stable = true
	second := f.check(t)

	assert.True(t, second.Rebuilt)
	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestFileSelectionScopesHash(t *testing.T) {
	f := newFixture(t)
	f.rec.Files = []string{"*.el"}
	f.writeSource(t, "dash.el", "content")
	f.writeSource(t, "README.md", "docs v1")

	first := f.check(t)

	// Changing an unselected file must not invalidate the build
	f.writeSource(t, "README.md", "docs v2")
	second := f.check(t)
	assert.False(t, second.Rebuilt)
	assert.Equal(t, first.Stamp, second.Stamp)
}

func TestPackFailureLeavesRecordIntact(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "dash.el", "v1")
	first := f.check(t)

	f.writeSource(t, "dash.el", "v2")
	req := f.request()
	req.Pack = func(string) error { return os.ErrPermission }

	_, err := f.engine.Check(req)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFingerprintIO))

	// Prior record survives the failed rebuild
	stored, ok, readErr := ReadRecord(f.recordPath)
	require.NoError(t, readErr)
	require.True(t, ok)
	assert.Equal(t, first.Hash, stored.Hash)
	assert.Equal(t, first.Stamp, stored.Stamp)

	// ...and so does the previous build output
	data, readErr2 := os.ReadFile(filepath.Join(f.buildDir, "dash.el"))
	require.NoError(t, readErr2)
	assert.Equal(t, "v1", string(data))
}

func TestReadRecordMissing(t *testing.T) {
	_, ok, err := ReadRecord(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadRecordMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("hash = [broken"), 0644))

	_, _, err := ReadRecord(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFingerprintIO))
}
