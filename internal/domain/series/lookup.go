package series

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// Lookup resolves query into a change. It returns (nil, nil) when a
// commit-hash-only query matches nothing, since such references may point at
// commits that never went through review. Errors wrapping
// repositories.ErrRemoteUnavailable mean the run has no access to the remote.
func (s *Series) Lookup(ctx context.Context, query entities.PatchQuery) (*entities.Change, error) {
	if cached := s.lookupCache.Get(query); cached != nil {
		return cached, nil
	}

	helper, err := s.pool.ForRemote(query.Remote)
	if err != nil {
		return nil, err
	}

	change, err := helper.QueryChange(ctx, query)
	if err != nil {
		if query.IsSHA1Only() && errors.Is(err, repositories.ErrChangeNotFound) {
			logger.Debugf("No change found for commit %s, skipping it", query)
			return nil, nil
		}
		return nil, err
	}
	if change == nil {
		return nil, nil
	}

	// The same change may already be known under another alias, e.g. resolved
	// by Change-Id before being referenced by number.
	if cached := s.lookupCache.Get(change.PatchQuery); cached != nil {
		s.lookupCache.InjectCustomKeys(query.Aliases(), cached)
		return cached, nil
	}

	s.lookupCache.Inject(change)
	s.lookupCache.InjectCustomKeys(query.Aliases(), change)
	if change.IsAlreadyMerged() {
		s.committed.Inject(change)
	}
	return change, nil
}

// lookupUncommitted resolves the dependency references of parent, dropping
// those already committed, merged or living on an unavailable remote.
// A dependency outside limit (when given) fails the parent.
func (s *Series) lookupUncommitted(
	ctx context.Context,
	parent *entities.Change,
	queries []entities.PatchQuery,
	limit *entities.PatchCache,
) ([]*entities.Change, error) {
	var deps []*entities.Change
	for _, query := range queries {
		if s.committed.Contains(query) {
			continue
		}

		dep, err := s.Lookup(ctx, query)
		if err != nil {
			if errors.Is(err, repositories.ErrRemoteUnavailable) {
				logger.Debugf("Skipping dependency %s of %s: %v", query, parent.Link(), err)
				continue
			}
			return nil, entities.WrapForParent(parent, err)
		}
		if dep == nil || dep.IsAlreadyMerged() {
			continue
		}

		if limit != nil && !limit.Has(dep) && !s.committed.Has(dep) {
			kind := entities.KindNotEligible
			if s.options.Submitting {
				kind = entities.KindRejected
			}
			return nil, entities.WrapForParent(parent, entities.NewPatchError(kind, dep, ""))
		}

		deps = append(deps, dep)
	}

	uncommitted := deps[:0]
	for _, dep := range deps {
		if !s.committed.Has(dep) {
			uncommitted = append(uncommitted, dep)
		}
	}
	return uncommitted, nil
}

// dependencies returns the hard and soft references of change, querying the
// review service at most once per change for the whole run.
func (s *Series) dependencies(
	ctx context.Context,
	manifest repositories.ManifestRepository,
	change *entities.Change,
) (dependencies, error) {
	key := changeKey(change)
	if deps, ok := s.depsCache[key]; ok {
		return deps, nil
	}

	helper, err := s.pool.ForChange(change)
	if err != nil {
		return dependencies{}, err
	}

	hard, err := helper.GetHardDeps(ctx, change)
	if err != nil {
		return dependencies{}, entities.WrapForParent(change, err)
	}

	repoPath := ""
	if manifest != nil {
		path, pathErr := manifest.PathForChange(change)
		if pathErr != nil {
			logger.Debugf("%s has no local checkout (%v), reading its dependencies remotely", change.Link(), pathErr)
		} else {
			repoPath = path
		}
	}

	soft, err := helper.GetSoftDeps(ctx, change, repoPath)
	if err != nil {
		return dependencies{}, entities.WrapForParent(change, err)
	}

	deps := dependencies{hard: hard, soft: soft}
	s.depsCache[key] = deps
	return deps, nil
}
