// Package config loads srcget's configuration with koanf, layering
// built-in defaults, the user config file, and SRCGET_* environment
// overrides (later layers win).
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/paths"
)

// EnvPrefix is the prefix for environment variable overrides.
// SRCGET_STABLE=true overrides the "stable" key; nested keys use a
// double underscore (SRCGET_BUILTIN_VERSIONS__EMACS).
const EnvPrefix = "SRCGET_"

// Config is srcget's resolved runtime configuration.
type Config struct {
	// RecipeDirs are additional recipe directories searched before the
	// default user recipe directory, in order.
	RecipeDirs []string `koanf:"recipe_dirs"`

	// Stable prefers tagged releases over snapshots by default.
	Stable bool `koanf:"stable"`

	// Parallel bounds the number of concurrent asynchronous builds.
	Parallel int `koanf:"parallel"`

	// BuiltinVersions maps packages shipped with the host environment
	// to the version they carry, for packages never installed by srcget.
	BuiltinVersions map[string]string `koanf:"builtin_versions"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"recipe_dirs":      []string{},
		"stable":           false,
		"parallel":         4,
		"builtin_versions": map[string]string{},
	}
}

// Load resolves the configuration for the given paths. A missing user
// config file is not an error; a malformed one is.
func Load(p paths.Paths) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	cfgPath := p.ConfigFilePath()
	if _, err := os.Stat(cfgPath); err == nil {
		if err := k.Load(file.Provider(cfgPath), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse config file %s", cfgPath)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}

	return &cfg, nil
}

// envKey maps SRCGET_FOO__BAR to "foo.bar".
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
