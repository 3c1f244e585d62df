// Package queue is the deferred-install backlog and its scheduler.
// Requests deferred here are drained by repeated fixed-point passes:
// each entry is built to learn its dependencies, then installed once
// every dependency that is itself in the backlog has been installed.
package queue

import (
	"context"
	"sync"

	"github.com/srcget/srcget/pkg/builder"
	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/logging"
	"github.com/srcget/srcget/pkg/recipe"
)

// entry is one deferred request. built is populated on the first pass
// that reaches the entry; the fingerprint check makes later passes
// over an already-built entry cheap.
type entry struct {
	designator recipe.Designator
	opts       builder.Options
	built      *builder.Built
}

func (e *entry) name() string {
	if e.built != nil {
		return e.built.Descriptor.Name
	}
	return e.designator.String()
}

// Failure is one per-entry failure collected during a drain.
type Failure struct {
	Name string
	Err  error
}

// Report summarizes one Process run.
type Report struct {
	// Installed lists the packages installed, in install order.
	Installed []string

	// Failures are the entries that failed and were dropped from the
	// backlog. Failures never abort independent entries.
	Failures []Failure

	// Passes is the number of full scans the drain took.
	Passes int
}

// Queue is the deferred backlog over one builder. Safe for concurrent
// deferral; Process itself is single-flight by design.
type Queue struct {
	builder *builder.Builder
	path    string

	mu      sync.Mutex
	backlog []*entry
}

// New creates an empty queue draining into the given builder.
func New(b *builder.Builder) *Queue {
	return &Queue{builder: b}
}

// Defer pushes a request onto the backlog without building anything.
// The defer option is stripped; the remaining options apply when the
// entry is eventually processed. Deferring the same designator twice
// yields two entries, and cache overwrite decides the winner.
func (q *Queue) Defer(d recipe.Designator, opts builder.Options) {
	opts.Defer = false

	q.mu.Lock()
	q.backlog = append(q.backlog, &entry{designator: d, opts: opts})
	size := len(q.backlog)
	q.mu.Unlock()

	logger := logging.GetLogger("queue")
	logger.Debug().
		Str("package", d.String()).
		Int("backlog", size).
		Msg("Request deferred")
}

// Pending returns the backlog entry names, most recently deferred
// first.
func (q *Queue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	names := make([]string, 0, len(q.backlog))
	for i := len(q.backlog) - 1; i >= 0; i-- {
		names = append(names, q.backlog[i].name())
	}
	return names
}

// Len returns the backlog size.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// Process drains the backlog to empty via repeated passes. Each pass
// builds entries that still need it, installs every entry whose
// in-backlog dependencies are already installed, and removes it. The
// drain stops when the backlog is empty or a full pass removes
// nothing; the latter is a dependency stall, reported with the stuck
// entries and the backlog left intact for inspection or retry.
//
// Per-entry failures are collected in the report and the failed entry
// dropped; independent entries keep processing.
func (q *Queue) Process(ctx context.Context) (*Report, error) {
	logger := logging.GetLogger("queue")
	report := &Report{}

	if q.Len() == 0 {
		return report, nil
	}

	for {
		progressed := false

		for _, e := range q.scanOrder() {
			if e.built == nil {
				built, err := q.builder.Build(ctx, e.designator, e.opts)
				if err != nil {
					logger.Warn().Str("package", e.name()).Err(err).Msg("Deferred build failed")
					report.Failures = append(report.Failures, Failure{Name: e.name(), Err: err})
					q.remove(e)
					progressed = true
					continue
				}
				e.built = built
			}

			if !q.depsSatisfied(e) {
				continue
			}

			if err := q.builder.InstallBuilt(e.built); err != nil {
				logger.Warn().Str("package", e.name()).Err(err).Msg("Deferred install failed")
				report.Failures = append(report.Failures, Failure{Name: e.name(), Err: err})
				q.remove(e)
				progressed = true
				continue
			}

			report.Installed = append(report.Installed, e.built.Descriptor.Name)
			q.remove(e)
			progressed = true
		}

		report.Passes++

		if q.Len() == 0 {
			logger.Info().
				Int("installed", len(report.Installed)).
				Int("failed", len(report.Failures)).
				Int("passes", report.Passes).
				Msg("Queue drained")
			return report, nil
		}
		if !progressed {
			stuck := q.Pending()
			return report, errors.Newf(errors.ErrDependencyStall,
				"queue stalled with %d entries whose dependencies never became installable", len(stuck)).
				WithDetail("stuck", stuck)
		}
	}
}

// scanOrder snapshots the backlog most recently deferred first, so a
// pass visits each entry exactly once even as installs shrink the
// backlog underneath it.
func (q *Queue) scanOrder() []*entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := make([]*entry, 0, len(q.backlog))
	for i := len(q.backlog) - 1; i >= 0; i-- {
		entries = append(entries, q.backlog[i])
	}
	return entries
}

// depsSatisfied reports whether every dependency of a built entry is
// installed at its minimum version or is not this run's concern. A
// dependency absent from both the package database and the backlog is
// assumed externally satisfiable; only in-backlog ordering is
// enforced here.
func (q *Queue) depsSatisfied(e *entry) bool {
	db := q.builder.DB()
	for dep, min := range e.built.Descriptor.Dependencies {
		installed, err := db.IsInstalled(dep, min)
		if err != nil {
			logger := logging.GetLogger("queue")
			logger.Warn().
				Str("package", e.name()).
				Str("dependency", dep).
				Err(err).
				Msg("Dependency check failed, treating as pending")
			installed = false
		}
		if installed {
			continue
		}
		if q.inBacklog(dep, e) {
			return false
		}
	}
	return true
}

// inBacklog reports whether another backlog entry carries the given
// name.
func (q *Queue) inBacklog(name string, self *entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.backlog {
		if e != self && e.name() == name {
			return true
		}
	}
	return false
}

func (q *Queue) remove(target *entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.backlog {
		if e == target {
			q.backlog = append(q.backlog[:i], q.backlog[i+1:]...)
			return
		}
	}
}
