// Package series resolves review changes into dependency-closed transactions
// and applies them to git working copies atomically.
package series

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
	"github.com/rios0rios0/patchseries/internal/telemetry"
)

// MaxPlanRecursion is the default depth budget of dependency resolution.
const MaxPlanRecursion = entities.DefaultMaxDepth

// Options tune one Series.
type Options struct {
	MaxDepth     int  // recursion budget, MaxPlanRecursion when zero
	Submitting   bool // out-of-batch dependencies are rejected rather than not eligible
	FetchWorkers int  // concurrent repository fetches, entities.DefaultFetchWorkers when zero
}

// Observer receives transaction outcomes.
type Observer interface {
	TransactionApplied(size int)
	TransactionRolledBack(kind string)
}

type noopObserver struct{}

func (noopObserver) TransactionApplied(int)       {}
func (noopObserver) TransactionRolledBack(string) {}

type dependencies struct {
	hard []entities.PatchQuery
	soft []entities.PatchQuery
}

// Series holds the run-lifetime state shared by resolution and application:
// the lookup cache, the committed set, dependency lists already fetched and
// changes known to fail against top-of-tree. It is not safe for concurrent use
// except for FetchChanges, which only touches the git layer.
type Series struct {
	pool     *HelperPool
	git      repositories.GitRepository
	options  Options
	observer Observer
	tracer   trace.Tracer

	lookupCache *entities.PatchCache
	committed   *entities.PatchCache
	depsCache   map[string]dependencies
	failedToT   map[string]*entities.PatchError
	baselines   map[string]string // repo path -> HEAD when first touched this run
}

// Option customizes a Series.
type Option func(*Series)

// WithObserver reports transaction outcomes to observer.
func WithObserver(observer Observer) Option {
	return func(s *Series) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// New creates a Series routing review queries through pool and git
// operations through git.
func New(pool *HelperPool, git repositories.GitRepository, options Options, opts ...Option) *Series {
	if options.MaxDepth == 0 {
		options.MaxDepth = MaxPlanRecursion
	}
	if options.FetchWorkers <= 0 {
		options.FetchWorkers = entities.DefaultFetchWorkers
	}
	s := &Series{
		pool:        pool,
		git:         git,
		options:     options,
		observer:    noopObserver{},
		tracer:      telemetry.Tracer("github.com/rios0rios0/patchseries/series"),
		lookupCache: entities.NewPatchCache(),
		committed:   entities.NewPatchCache(),
		depsCache:   make(map[string]dependencies),
		failedToT:   make(map[string]*entities.PatchError),
		baselines:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InjectCommitted marks changes as already merged.
func (s *Series) InjectCommitted(changes ...*entities.Change) {
	s.committed.Inject(changes...)
}

// IsCommitted reports whether change is known to be merged or applied.
func (s *Series) IsCommitted(change *entities.Change) bool {
	return s.committed.Has(change)
}

// Committed returns the changes known to be merged or applied, in insertion order.
func (s *Series) Committed() []*entities.Change {
	return s.committed.Changes()
}

// InjectLookupCache makes changes available to lookups without a review query.
func (s *Series) InjectLookupCache(changes ...*entities.Change) {
	s.lookupCache.Inject(changes...)
}

// FailedToT returns the failure remembered for change, if it failed against ToT.
func (s *Series) FailedToT(change *entities.Change) (*entities.PatchError, bool) {
	err, ok := s.failedToT[changeKey(change)]
	return err, ok
}

func changeKey(change *entities.Change) string {
	if id := change.ID(); id != "" {
		return id
	}
	return change.Link()
}
