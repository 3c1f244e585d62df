// Package pkgdb is the local installed-package database: a directory
// per installed package holding its bundle and descriptor. It answers
// the is-installed and installed-version queries the scheduler and the
// version comparator depend on.
package pkgdb

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/srcget/srcget/pkg/bundle"
	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/logging"
	"github.com/srcget/srcget/pkg/utils"
	"github.com/srcget/srcget/pkg/version"
)

// DB is a handle on the install database rooted at one directory.
type DB struct {
	root string
}

// New creates a database handle. The root is created lazily on the
// first install.
func New(root string) *DB {
	return &DB{root: root}
}

// PackageDir returns where a package's installed bundle lives.
func (db *DB) PackageDir(name string) string {
	return filepath.Join(db.root, name)
}

// Install places a built bundle into the database under the
// descriptor's name, replacing any previous installation atomically.
func (db *DB) Install(bundleDir string, desc bundle.Descriptor) error {
	logger := logging.GetLogger("pkgdb")

	if desc.Name == "" {
		return errors.New(errors.ErrInvalidInput, "cannot install a bundle without a name")
	}

	if err := os.MkdirAll(db.root, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrInstallFailed, "failed to create install root %s", db.root)
	}

	staging, err := os.MkdirTemp(db.root, "."+desc.Name+".installing-")
	if err != nil {
		return errors.Wrapf(err, errors.ErrInstallFailed, "failed to create install staging for %q", desc.Name)
	}
	defer func() {
		_ = os.RemoveAll(staging)
	}()

	if err := utils.CopyTree(bundleDir, staging); err != nil {
		return errors.Wrapf(err, errors.ErrInstallFailed, "failed to copy bundle for %q", desc.Name)
	}
	if err := bundle.WriteDescriptor(staging, desc); err != nil {
		return err
	}

	target := db.PackageDir(desc.Name)
	if err := os.RemoveAll(target); err != nil {
		return errors.Wrapf(err, errors.ErrInstallFailed, "failed to remove previous install of %q", desc.Name)
	}
	if err := os.Rename(staging, target); err != nil {
		return errors.Wrapf(err, errors.ErrInstallFailed, "failed to finalize install of %q", desc.Name)
	}

	logger.Info().Str("package", desc.Name).Str("version", desc.Version).Msg("Package installed")
	return nil
}

// Remove deletes a package from the database.
func (db *DB) Remove(name string) error {
	target := db.PackageDir(name)
	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return errors.Newf(errors.ErrNotFound, "package %q is not installed", name)
		}
		return errors.Wrapf(err, errors.ErrInstallFailed, "failed to inspect %s", target)
	}
	if err := os.RemoveAll(target); err != nil {
		return errors.Wrapf(err, errors.ErrInstallFailed, "failed to remove %q", name)
	}
	return nil
}

// Descriptor returns a package's descriptor, reporting whether the
// package is installed.
func (db *DB) Descriptor(name string) (bundle.Descriptor, bool, error) {
	return bundle.ReadDescriptor(db.PackageDir(name))
}

// InstalledVersion implements version.InstalledSource.
func (db *DB) InstalledVersion(name string) (string, bool, error) {
	desc, ok, err := db.Descriptor(name)
	if err != nil || !ok {
		return "", false, err
	}
	return desc.Version, true, nil
}

// IsInstalled reports whether a package is installed at or above the
// given minimum version. An empty minimum means any version counts.
// When versions cannot be compared, an installed package counts as
// satisfying, so malformed metadata never wedges dependency checks.
func (db *DB) IsInstalled(name, minVersion string) (bool, error) {
	current, ok, err := db.InstalledVersion(name)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if minVersion == "" {
		return true, nil
	}

	cmp, err := version.Compare(current, minVersion)
	if err != nil {
		logger := logging.GetLogger("pkgdb")
		logger.Warn().
			Str("package", name).
			Str("installed", current).
			Str("minimum", minVersion).
			Msg("Uncomparable versions, treating requirement as satisfied")
		return true, nil
	}
	return cmp >= 0, nil
}

// Installed returns the descriptors of every installed package, sorted
// by name.
func (db *DB) Installed() ([]bundle.Descriptor, error) {
	entries, err := os.ReadDir(db.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to read install root %s", db.root)
	}

	var descs []bundle.Descriptor
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		desc, ok, err := bundle.ReadDescriptor(db.PackageDir(entry.Name()))
		if err != nil {
			return nil, err
		}
		if ok {
			descs = append(descs, desc)
		}
	}

	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs, nil
}

var _ version.InstalledSource = (*DB)(nil)
