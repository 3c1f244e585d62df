package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRespectsEnvOverrides(t *testing.T) {
	t.Setenv(EnvDataDir, "/custom/data")
	t.Setenv(EnvCacheDir, "/custom/cache")
	t.Setenv(EnvConfigDir, "/custom/config")
	t.Setenv(EnvStateDir, "/custom/state")

	p := New()

	assert.Equal(t, "/custom/data", p.DataDir())
	assert.Equal(t, "/custom/cache", p.CacheDir())
	assert.Equal(t, "/custom/config", p.ConfigDir())
	assert.Equal(t, "/custom/state", p.StateDir())
}

func TestLayout(t *testing.T) {
	p := NewWithRoot("/sandbox")

	assert.Equal(t, filepath.Join("/sandbox", "cache", "sources", "magit"), p.SourceDir("magit"))
	assert.Equal(t, filepath.Join("/sandbox", "cache", "build", "magit"), p.BuildDir("magit"))
	assert.Equal(t, filepath.Join("/sandbox", "cache", "build", "magit.fingerprint.toml"), p.FingerprintPath("magit"))
	assert.Equal(t, filepath.Join("/sandbox", "data", "installed"), p.InstalledRoot())
	assert.Equal(t, filepath.Join("/sandbox", "config", "recipes"), p.RecipeDir())
	assert.Equal(t, filepath.Join("/sandbox", "state", "buildcache.toml"), p.CacheFilePath())
	assert.Equal(t, filepath.Join("/sandbox", "config", "config.toml"), p.ConfigFilePath())
}

func TestFingerprintIsSiblingOfBuildDir(t *testing.T) {
	p := NewWithRoot("/sandbox")

	// The fingerprint record must survive atomic replacement of the
	// build directory, so it lives next to it, not inside it.
	assert.Equal(t,
		filepath.Dir(p.BuildDir("magit")),
		filepath.Dir(p.FingerprintPath("magit")))
}
