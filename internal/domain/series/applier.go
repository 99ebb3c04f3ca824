package series

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// ApplyOptions tune Apply.
type ApplyOptions struct {
	Frozen        bool // only the given roots may be applied, no other dependency
	HonorOrdering bool // apply in input order rather than longest transaction first
}

// ApplyResult is the outcome of Apply.
type ApplyResult struct {
	Applied        []*entities.Change
	FailedToT      []*entities.PatchError
	FailedInflight []*entities.PatchError
	Results        []entities.PlannedTransaction // one per root, Err set on failure
}

func (r *ApplyResult) fail(planned entities.PlannedTransaction, err *entities.PatchError) {
	planned.Err = err
	r.Results = append(r.Results, planned)
	if err.Inflight {
		r.FailedInflight = append(r.FailedInflight, err)
	} else {
		r.FailedToT = append(r.FailedToT, err)
	}
}

// Apply fetches, plans and applies the transactions of roots, one after the
// other. A failing transaction is rolled back and recorded; it never stops
// the remaining ones.
func (s *Series) Apply(
	ctx context.Context,
	manifest repositories.ManifestRepository,
	roots []*entities.Change,
	opts ApplyOptions,
) (ApplyResult, error) {
	var result ApplyResult
	s.lookupCache.Inject(roots...)

	fetched, err := s.FetchChanges(ctx, manifest, roots)
	if err != nil {
		return result, err
	}
	candidates := roots
	if len(fetched.Failed) > 0 {
		candidates = make([]*entities.Change, 0, len(roots))
		for _, root := range roots {
			if failure := failureFor(fetched.Failed, root); failure != nil {
				result.fail(entities.PlannedTransaction{Root: root}, failure)
				continue
			}
			candidates = append(candidates, root)
		}
	}

	var limit *entities.PatchCache
	if opts.Frozen {
		limit = entities.NewPatchCache(candidates...)
	}

	for _, planned := range s.Plan(ctx, manifest, candidates, limit, opts.HonorOrdering) {
		if err = ctx.Err(); err != nil {
			return result, err
		}
		if planned.Err != nil {
			result.fail(planned, entities.AttributeTo(planned.Root, planned.Err))
			continue
		}

		deps, fetchErr := s.FetchChanges(ctx, manifest, planned.Transaction.Changes)
		if fetchErr != nil {
			return result, fetchErr
		}
		if len(deps.Failed) > 0 {
			result.fail(planned, entities.AttributeTo(planned.Root, deps.Failed[0]))
			continue
		}

		applied, applyErr := s.ApplyTransaction(ctx, manifest, planned.Transaction)
		if applyErr != nil {
			result.fail(planned, entities.AttributeTo(planned.Root, applyErr))
			continue
		}
		result.Applied = append(result.Applied, applied...)
		result.Results = append(result.Results, planned)
	}

	return result, nil
}

// ApplyTransaction applies the changes of txn in order. Either all of them
// end up committed or every touched repository is reset to where it was and
// the committed set is restored, whatever the exit path. A change that failed
// against top-of-tree earlier in the run fails again without being retried.
// It returns the changes applied by this call.
func (s *Series) ApplyTransaction(
	ctx context.Context,
	manifest repositories.ManifestRepository,
	txn entities.Transaction,
) (applied []*entities.Change, err error) {
	ctx, span := s.tracer.Start(ctx, "series.ApplyTransaction")
	defer span.End()
	span.SetAttributes(attribute.Int("transaction.length", txn.Len()))
	if txn.Inducing != nil {
		span.SetAttributes(attribute.String("change", txn.Inducing.Link()))
	}

	for _, change := range txn.Changes {
		if failure, ok := s.failedToT[changeKey(change)]; ok {
			logger.Infof("%s already failed against ToT in this run, not retrying", change.Link())
			return nil, s.attribute(txn, change, failure)
		}
	}

	pathOf := make(map[*entities.Change]string, txn.Len())
	var states []entities.ProjectState
	for _, change := range txn.Changes {
		if s.committed.Has(change) {
			continue
		}
		path, pathErr := manifest.PathForChange(change)
		if pathErr != nil {
			return nil, s.attribute(txn, change, &entities.PatchError{
				Kind:   entities.KindNotInManifest,
				Change: change,
				Cause:  pathErr,
			})
		}
		pathOf[change] = path
		if containsRepo(states, path) {
			continue
		}
		head, headErr := s.git.CurrentHead(ctx, path)
		if headErr != nil {
			owner := txn.Inducing
			if owner == nil {
				owner = change
			}
			return nil, entities.WrapForParent(owner, headErr)
		}
		if _, ok := s.baselines[path]; !ok {
			s.baselines[path] = head
		}
		states = append(states, entities.ProjectState{RepoPath: path, SHA1: head})
	}

	snapshot := s.committed.Copy()
	committed := false
	defer func() {
		if committed {
			return
		}
		s.rollback(context.WithoutCancel(ctx), states, snapshot)
		applied = nil
		kind := "panic"
		if k, ok := entities.KindOf(err); ok {
			kind = k.String()
		}
		s.observer.TransactionRolledBack(kind)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transaction rolled back")
		}
	}()

	for _, change := range txn.Changes {
		if s.committed.Has(change) {
			continue
		}
		path := pathOf[change]
		logger.Infof("Applying %s to %s", change, path)
		if applyErr := s.git.MaterializeChange(ctx, path, change, s.baselines[path]); applyErr != nil {
			failure := entities.AttributeTo(change, applyErr)
			if !failure.Inflight {
				s.failedToT[changeKey(change)] = failure
			}
			return nil, s.attribute(txn, change, failure)
		}
		s.committed.Inject(change)
		applied = append(applied, change)
	}

	committed = true
	s.observer.TransactionApplied(len(applied))
	return applied, nil
}

// attribute reports a failure of change to the change that induced txn.
func (s *Series) attribute(txn entities.Transaction, change *entities.Change, err *entities.PatchError) error {
	if txn.Inducing == nil || txn.Inducing == change {
		return err
	}
	return entities.WrapForParent(txn.Inducing, err)
}

func (s *Series) rollback(ctx context.Context, states []entities.ProjectState, snapshot *entities.PatchCache) {
	for _, state := range states {
		logger.Infof("Rolling %s back to %s", state.RepoPath, state.SHA1)
		if err := s.git.HardReset(ctx, state.RepoPath, state.SHA1); err != nil {
			logger.Errorf("Failed to reset %s to %s: %v", state.RepoPath, state.SHA1, err)
		}
	}
	s.committed = snapshot
}

func containsRepo(states []entities.ProjectState, path string) bool {
	for _, state := range states {
		if state.RepoPath == path {
			return true
		}
	}
	return false
}

func failureFor(failures []*entities.PatchError, change *entities.Change) *entities.PatchError {
	for _, failure := range failures {
		if failure.Change == change {
			return failure
		}
	}
	return nil
}
