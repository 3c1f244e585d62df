// Package bundle turns a fetched source tree into an installable
// artifact by applying the recipe's file selection rule, and extracts
// the package descriptor (version, dependencies) from the result.
package bundle

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/recipe"
	"github.com/srcget/srcget/pkg/utils"
)

const (
	// MetadataFile is the optional metadata file a source tree may
	// carry to declare its dependencies.
	MetadataFile = "package.toml"

	// DescriptorFile is the descriptor srcget writes next to an
	// installed bundle.
	DescriptorFile = "descriptor.toml"
)

// Descriptor is the post-build description of a package. Dependencies
// map dependency names to minimum versions; they are only knowable
// after the package has been built.
type Descriptor struct {
	Name         string            `toml:"name"`
	Version      string            `toml:"version"`
	Dependencies map[string]string `toml:"dependencies,omitempty"`
}

// metadata is the shape of a bundle's own package.toml.
type metadata struct {
	Description  string            `toml:"description,omitempty"`
	Dependencies map[string]string `toml:"dependencies,omitempty"`
}

// Build stages the recipe-selected files of sourceDir into stagingDir,
// preserving relative paths.
func Build(rec recipe.Recipe, sourceDir, stagingDir string) error {
	files, err := rec.SelectFiles(sourceDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.Newf(errors.ErrPackageInvalid, "recipe %q selects no files in %s", rec.Name, sourceDir)
	}

	for _, rel := range files {
		src := filepath.Join(sourceDir, filepath.FromSlash(rel))
		dst := filepath.Join(stagingDir, filepath.FromSlash(rel))

		info, err := os.Stat(src)
		if err != nil {
			return errors.Wrapf(err, errors.ErrPackageInvalid, "failed to stat %s", src)
		}
		if err := utils.CopyFile(src, dst, info.Mode().Perm()); err != nil {
			return errors.Wrapf(err, errors.ErrPackageInvalid, "failed to stage %s", rel)
		}
	}
	return nil
}

// Describe extracts the descriptor for a built bundle. The bundle's
// own package.toml contributes dependencies when present; a bundle
// without one simply has none.
func Describe(bundleDir, name, version string) (Descriptor, error) {
	desc := Descriptor{Name: name, Version: version}

	data, err := os.ReadFile(filepath.Join(bundleDir, MetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return desc, nil
		}
		return Descriptor{}, errors.Wrapf(err, errors.ErrPackageInvalid, "failed to read metadata for %q", name)
	}

	var meta metadata
	if err := toml.Unmarshal(data, &meta); err != nil {
		return Descriptor{}, errors.Wrapf(err, errors.ErrPackageInvalid, "failed to parse metadata for %q", name)
	}

	desc.Dependencies = meta.Dependencies
	return desc, nil
}

// WriteDescriptor persists a descriptor inside dir.
func WriteDescriptor(dir string, desc Descriptor) error {
	data, err := toml.Marshal(desc)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to serialize descriptor for %q", desc.Name)
	}
	if err := os.WriteFile(filepath.Join(dir, DescriptorFile), data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrInstallFailed, "failed to write descriptor for %q", desc.Name)
	}
	return nil
}

// ReadDescriptor loads the descriptor from dir, reporting whether one
// exists.
func ReadDescriptor(dir string) (Descriptor, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, DescriptorFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Descriptor{}, false, nil
		}
		return Descriptor{}, false, errors.Wrapf(err, errors.ErrPackageInvalid, "failed to read descriptor in %s", dir)
	}

	var desc Descriptor
	if err := toml.Unmarshal(data, &desc); err != nil {
		return Descriptor{}, false, errors.Wrapf(err, errors.ErrPackageInvalid, "failed to parse descriptor in %s", dir)
	}
	return desc, true, nil
}
