// Package fingerprint decides rebuild-or-reuse for fetched source
// trees. It hashes the recipe-selected file set, compares the digest
// against the stored record, and either reuses the recorded version
// stamp untouched or stamps a fresh build and atomically replaces the
// build directory.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/logging"
	"github.com/srcget/srcget/pkg/recipe"
)

// SnapshotStampFormat is the timestamp layout used for snapshot-mode
// version stamps, chosen so stamps order correctly as numeric versions.
const SnapshotStampFormat = "20060102.1504"

// Record pairs the content hash of the last build with the version
// stamp it was assigned. For a fixed hash the stamp never changes.
type Record struct {
	Hash  string `toml:"hash"`
	Stamp string `toml:"stamp"`
}

// Request carries everything one fingerprint check needs.
type Request struct {
	// Recipe is the resolved recipe; its file selection rule and its
	// serialized form both enter the digest.
	Recipe recipe.Recipe

	// SourceDir is the freshly fetched source tree.
	SourceDir string

	// BuildDir is the package's build output directory, replaced
	// atomically when the source changed.
	BuildDir string

	// RecordPath is where the fingerprint record is persisted. It must
	// live outside BuildDir so it survives the replacement.
	RecordPath string

	// UpstreamVersion is the fetcher-reported version, used as the
	// stamp for upstream-mode recipes.
	UpstreamVersion string

	// Pack stages the packaged artifact into the given directory.
	// Only invoked when a rebuild is required.
	Pack func(stagingDir string) error
}

// Result reports the outcome of a check.
type Result struct {
	// Stamp is the version stamp for this build. It is valid whether
	// or not a rebuild occurred.
	Stamp string

	// Rebuilt reports whether the build directory was replaced.
	Rebuilt bool

	// Hash is the content hash of the current source tree.
	Hash string
}

// Engine performs fingerprint checks. The clock is injectable so tests
// can pin snapshot stamps.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock creates an engine with a fixed clock source.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Check implements the rebuild-avoidance algorithm. The returned stamp
// is always correct, including on the no-op reuse path, so downstream
// version comparison is never skipped just because the build was.
func (e *Engine) Check(req Request) (Result, error) {
	logger := logging.GetLogger("fingerprint")
	name := req.Recipe.Name

	prev, havePrev, err := ReadRecord(req.RecordPath)
	if err != nil {
		return Result{}, err
	}

	files, err := req.Recipe.SelectFiles(req.SourceDir)
	if err != nil {
		return Result{}, errors.Wrapf(err, errors.ErrFingerprintIO, "failed to select files for %q", name)
	}

	hash, err := computeHash(req.Recipe, req.SourceDir, files)
	if err != nil {
		return Result{}, err
	}

	if havePrev && prev.Hash == hash {
		logger.Debug().
			Str("package", name).
			Str("stamp", prev.Stamp).
			Msg("Source unchanged, reusing build")
		return Result{Stamp: prev.Stamp, Rebuilt: false, Hash: hash}, nil
	}

	stamp := req.UpstreamVersion
	if req.Recipe.EffectiveVersionType() != recipe.VersionUpstream || stamp == "" {
		stamp = e.now().UTC().Format(SnapshotStampFormat)
	}

	if err := e.replaceBuildDir(req); err != nil {
		return Result{}, err
	}

	if err := WriteRecord(req.RecordPath, Record{Hash: hash, Stamp: stamp}); err != nil {
		return Result{}, err
	}

	logger.Info().
		Str("package", name).
		Str("stamp", stamp).
		Bool("firstBuild", !havePrev).
		Msg("Source changed, rebuilt")
	return Result{Stamp: stamp, Rebuilt: true, Hash: hash}, nil
}

// replaceBuildDir stages the packaged output next to the build dir and
// swaps it in with a rename, so a failed packaging step never leaves a
// half-written build directory behind.
func (e *Engine) replaceBuildDir(req Request) error {
	parent := filepath.Dir(req.BuildDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFingerprintIO, "failed to create build root for %q", req.Recipe.Name)
	}

	staging, err := os.MkdirTemp(parent, filepath.Base(req.BuildDir)+".staging-")
	if err != nil {
		return errors.Wrapf(err, errors.ErrFingerprintIO, "failed to create staging dir for %q", req.Recipe.Name)
	}
	defer func() {
		_ = os.RemoveAll(staging)
	}()

	if err := req.Pack(staging); err != nil {
		return errors.Wrapf(err, errors.ErrFingerprintIO, "failed to stage build for %q", req.Recipe.Name)
	}

	if err := os.RemoveAll(req.BuildDir); err != nil {
		return errors.Wrapf(err, errors.ErrFingerprintIO, "failed to remove stale build for %q", req.Recipe.Name)
	}
	if err := os.Rename(staging, req.BuildDir); err != nil {
		return errors.Wrapf(err, errors.ErrFingerprintIO, "failed to swap build dir for %q", req.Recipe.Name)
	}
	return nil
}

// computeHash digests the recipe plus the selected file set. File
// identity is order-independent (the set is sorted), bytes within each
// file are order-dependent.
func computeHash(rec recipe.Recipe, sourceDir string, files []string) (string, error) {
	h := sha256.New()

	rendered, err := rec.Render()
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFingerprintIO, "failed to hash recipe %q", rec.Name)
	}
	_, _ = io.WriteString(h, rendered)
	_, _ = io.WriteString(h, "\x00")

	for _, rel := range files {
		_, _ = io.WriteString(h, rel)
		_, _ = io.WriteString(h, "\x00")

		f, err := os.Open(filepath.Join(sourceDir, filepath.FromSlash(rel)))
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrFingerprintIO, "failed to open %s for hashing", rel)
		}
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrFingerprintIO, "failed to hash %s", rel)
		}
		_, _ = io.WriteString(h, "\x00")
	}

	return fmt.Sprintf("sha256:%s", hex.EncodeToString(h.Sum(nil))), nil
}

// ReadRecord loads a fingerprint record, reporting whether one exists.
func ReadRecord(path string) (Record, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false, nil
		}
		return Record{}, false, errors.Wrapf(err, errors.ErrFingerprintIO, "failed to read fingerprint record %s", path)
	}

	var rec Record
	if err := toml.Unmarshal(data, &rec); err != nil {
		return Record{}, false, errors.Wrapf(err, errors.ErrFingerprintIO, "failed to parse fingerprint record %s", path)
	}
	return rec, true, nil
}

// WriteRecord persists a fingerprint record atomically.
func WriteRecord(path string, rec Record) error {
	data, err := toml.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFingerprintIO, "failed to serialize fingerprint record %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFingerprintIO, "failed to create fingerprint dir for %s", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFingerprintIO, "failed to write fingerprint record %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, errors.ErrFingerprintIO, "failed to replace fingerprint record %s", path)
	}
	return nil
}
