// Package paths provides centralized path handling for srcget.
// It implements XDG Base Directory compliance and is the single place
// where the on-disk layout (sources, build output, install database,
// cache file) is decided.
package paths

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/srcget/srcget/pkg/utils"
)

// Environment variable names
const (
	// EnvDataDir overrides the XDG data directory for srcget
	EnvDataDir = "SRCGET_DATA_DIR"

	// EnvCacheDir overrides the XDG cache directory for srcget
	EnvCacheDir = "SRCGET_CACHE_DIR"

	// EnvConfigDir overrides the XDG config directory for srcget
	EnvConfigDir = "SRCGET_CONFIG_DIR"

	// EnvStateDir overrides the XDG state directory for srcget
	EnvStateDir = "SRCGET_STATE_DIR"
)

// Layout constants.
// IMPORTANT: these define srcget's internal storage structure and are not
// user-configurable; changing them breaks existing installations.
const (
	// AppDirName is the directory name used under each XDG base dir
	AppDirName = "srcget"

	// SourcesDir holds fetched source trees, one subdirectory per package
	SourcesDir = "sources"

	// BuildsDir holds packaged build output, one subdirectory per package
	BuildsDir = "build"

	// InstalledDir is the root of the installed-package database
	InstalledDir = "installed"

	// RecipesDir is the user recipe directory under the config dir
	RecipesDir = "recipes"

	// CacheFileName is the persisted build cache (name -> recipe)
	CacheFileName = "buildcache.toml"

	// QueueFileName is the persisted deferred-install backlog
	QueueFileName = "queue.toml"

	// ConfigFileName is the user configuration file
	ConfigFileName = "config.toml"

	// FingerprintSuffix names the per-package fingerprint record,
	// stored as a sibling of the package's build directory
	FingerprintSuffix = ".fingerprint.toml"
)

// Paths provides centralized path management for srcget
type Paths interface {
	// DataDir is the root for durable data (the install database)
	DataDir() string
	// CacheDir is the root for reproducible data (sources, builds)
	CacheDir() string
	// ConfigDir holds the config file and the user recipe directory
	ConfigDir() string
	// StateDir holds the build cache file and logs
	StateDir() string

	// SourceDir is where a package's fetched source tree lives
	SourceDir(name string) string
	// BuildDir is where a package's packaged output lives
	BuildDir(name string) string
	// FingerprintPath is the fingerprint record for a package
	FingerprintPath(name string) string
	// InstalledRoot is the install database root
	InstalledRoot() string
	// RecipeDir is the user recipe directory
	RecipeDir() string
	// CacheFilePath is the persisted build cache file
	CacheFilePath() string
	// QueueFilePath is the persisted deferred-install backlog
	QueueFilePath() string
	// ConfigFilePath is the user configuration file
	ConfigFilePath() string
}

type osPaths struct {
	data   string
	cache  string
	config string
	state  string
}

// New creates a Paths instance from the environment, preferring the
// SRCGET_* overrides and falling back to the XDG base directories.
func New() Paths {
	return &osPaths{
		data:   utils.EnvOrDefault(EnvDataDir, filepath.Join(xdg.DataHome, AppDirName)),
		cache:  utils.EnvOrDefault(EnvCacheDir, filepath.Join(xdg.CacheHome, AppDirName)),
		config: utils.EnvOrDefault(EnvConfigDir, filepath.Join(xdg.ConfigHome, AppDirName)),
		state:  utils.EnvOrDefault(EnvStateDir, filepath.Join(xdg.StateHome, AppDirName)),
	}
}

// NewWithRoot creates a Paths instance with every base directory rooted
// under a single directory. Used by tests to sandbox all filesystem state.
func NewWithRoot(root string) Paths {
	return &osPaths{
		data:   filepath.Join(root, "data"),
		cache:  filepath.Join(root, "cache"),
		config: filepath.Join(root, "config"),
		state:  filepath.Join(root, "state"),
	}
}

func (p *osPaths) DataDir() string   { return p.data }
func (p *osPaths) CacheDir() string  { return p.cache }
func (p *osPaths) ConfigDir() string { return p.config }
func (p *osPaths) StateDir() string  { return p.state }

func (p *osPaths) SourceDir(name string) string {
	return filepath.Join(p.cache, SourcesDir, name)
}

func (p *osPaths) BuildDir(name string) string {
	return filepath.Join(p.cache, BuildsDir, name)
}

func (p *osPaths) FingerprintPath(name string) string {
	return filepath.Join(p.cache, BuildsDir, name+FingerprintSuffix)
}

func (p *osPaths) InstalledRoot() string {
	return filepath.Join(p.data, InstalledDir)
}

func (p *osPaths) RecipeDir() string {
	return filepath.Join(p.config, RecipesDir)
}

func (p *osPaths) CacheFilePath() string {
	return filepath.Join(p.state, CacheFileName)
}

func (p *osPaths) QueueFilePath() string {
	return filepath.Join(p.state, QueueFileName)
}

func (p *osPaths) ConfigFilePath() string {
	return filepath.Join(p.config, ConfigFileName)
}
