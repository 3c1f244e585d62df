package queue

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/srcget/srcget/pkg/builder"
	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/recipe"
)

// entryRecord is the on-disk form of one backlog entry. Build products
// are never persisted; a reloaded entry is rebuilt on the next drain,
// which the fingerprint check keeps cheap.
type entryRecord struct {
	Name    string         `toml:"name"`
	Recipe  *recipe.Recipe `toml:"recipe,omitempty"`
	Stable  bool           `toml:"stable,omitempty"`
	Upgrade bool           `toml:"upgrade,omitempty"`
}

type queueFile struct {
	Entries []entryRecord `toml:"entries,omitempty"`
}

// Load reads the backlog persisted at path, or starts empty when none
// exists. The returned queue flushes back to the same path.
func Load(path string, b *builder.Builder) (*Queue, error) {
	q := New(b)
	q.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return q, nil
		}
		return nil, errors.Wrapf(err, errors.ErrCacheIO, "failed to read queue file %s", path)
	}

	var file queueFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCacheIO, "failed to parse queue file %s", path)
	}

	for _, rec := range file.Entries {
		d := recipe.ByName(rec.Name)
		if rec.Recipe != nil {
			d = recipe.Explicit(*rec.Recipe)
		}
		q.backlog = append(q.backlog, &entry{
			designator: d,
			opts:       builder.Options{Stable: rec.Stable, Upgrade: rec.Upgrade},
		})
	}
	return q, nil
}

// Flush persists the backlog atomically. A queue constructed with New
// has no backing file and flushes to nowhere.
func (q *Queue) Flush() error {
	if q.path == "" {
		return nil
	}

	q.mu.Lock()
	file := queueFile{}
	for _, e := range q.backlog {
		rec := entryRecord{
			Name:    e.designator.String(),
			Recipe:  e.designator.Recipe,
			Stable:  e.opts.Stable,
			Upgrade: e.opts.Upgrade,
		}
		file.Entries = append(file.Entries, rec)
	}
	q.mu.Unlock()

	data, err := toml.Marshal(file)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCacheIO, "failed to serialize queue file %s", q.path)
	}

	if err := os.MkdirAll(filepath.Dir(q.path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrCacheIO, "failed to create state dir for %s", q.path)
	}

	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrCacheIO, "failed to write queue file %s", q.path)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return errors.Wrapf(err, errors.ErrCacheIO, "failed to replace queue file %s", q.path)
	}
	return nil
}
