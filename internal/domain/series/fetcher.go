package series

import (
	"context"
	"sync"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// FetchResult is the outcome of FetchChanges.
type FetchResult struct {
	Fetched []*entities.Change
	Failed  []*entities.PatchError
}

// FetchChanges makes the commits of changes available in their working
// copies. Committed and already fetched changes are skipped. Repositories are
// fetched concurrently on a bounded pool, changes of one repository strictly
// one after the other. The returned error is only set when ctx is done.
func (s *Series) FetchChanges(
	ctx context.Context,
	manifest repositories.ManifestRepository,
	changes []*entities.Change,
) (FetchResult, error) {
	var result FetchResult

	var paths []string
	byPath := make(map[string][]*entities.Change)
	for _, change := range changes {
		if s.committed.Has(change) || change.Fetched {
			continue
		}
		path, err := manifest.PathForChange(change)
		if err != nil {
			result.Failed = append(result.Failed, &entities.PatchError{
				Kind:   entities.KindNotInManifest,
				Change: change,
				Cause:  err,
			})
			continue
		}
		if _, ok := byPath[path]; !ok {
			paths = append(paths, path)
		}
		if entities.IndexOf(byPath[path], change) < 0 {
			byPath[path] = append(byPath[path], change)
		}
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.options.FetchWorkers)

	for _, path := range paths {
		repoChanges := byPath[path]
		group.Go(func() error {
			for _, change := range repoChanges {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				logger.Debugf("Fetching %s into %s", change.Link(), path)
				err := s.git.FetchChange(groupCtx, path, change)

				mu.Lock()
				if err != nil {
					logger.Errorf("Failed to fetch %s: %v", change.Link(), err)
					result.Failed = append(result.Failed, entities.AttributeTo(change, err))
				} else {
					change.Fetched = true
					result.Fetched = append(result.Fetched, change)
				}
				mu.Unlock()
			}
			return nil
		})
	}

	return result, group.Wait()
}
