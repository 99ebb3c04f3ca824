package series

import (
	"context"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// Plan builds one transaction per root. A root whose transaction cannot be
// built is reported with its error and does not affect the others. Unless
// honorOrdering is set, transactions are ordered longest first (ties keep the
// input order); failed roots sort last.
func (s *Series) Plan(
	ctx context.Context,
	manifest repositories.ManifestRepository,
	roots []*entities.Change,
	limit *entities.PatchCache,
	honorOrdering bool,
) []entities.PlannedTransaction {
	s.lookupCache.Inject(roots...)

	planned := make([]entities.PlannedTransaction, 0, len(roots))
	for _, root := range roots {
		txn, err := s.BuildTransaction(ctx, manifest, root, limit)
		if err != nil {
			logger.Warnf("Failed to plan %s: %v", root.Link(), err)
		} else {
			logger.Debugf("Planned %s as [%s]", root.Link(), entities.ChangeLinks(txn.Changes))
		}
		planned = append(planned, entities.PlannedTransaction{
			Root:        root,
			Transaction: txn,
			Err:         err,
		})
	}

	if !honorOrdering {
		sort.SliceStable(planned, func(i, j int) bool {
			return planned[i].Transaction.Len() > planned[j].Transaction.Len()
		})
	}
	return planned
}

// DependMap returns, for every change reachable from changes, the roots
// whose transactions include it (the roots that depend on it, directly or
// not). Roots that fail to resolve are returned separately.
func (s *Series) DependMap(
	ctx context.Context,
	manifest repositories.ManifestRepository,
	changes []*entities.Change,
) (map[*entities.Change][]*entities.Change, []entities.PlannedTransaction) {
	dependents := make(map[*entities.Change][]*entities.Change)
	var failed []entities.PlannedTransaction

	for _, planned := range s.Plan(ctx, manifest, changes, nil, true) {
		if planned.Err != nil {
			failed = append(failed, planned)
			continue
		}
		for _, dep := range planned.Transaction.Changes {
			if dep == planned.Root || entities.IndexOf(dependents[dep], planned.Root) >= 0 {
				continue
			}
			dependents[dep] = append(dependents[dep], planned.Root)
		}
	}
	return dependents, failed
}
