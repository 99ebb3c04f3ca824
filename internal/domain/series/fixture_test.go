//go:build unit

package series_test

import (
	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/series"
	builders "github.com/rios0rios0/patchseries/test/domain/entitybuilders"
	seriesdoubles "github.com/rios0rios0/patchseries/test/domain/seriesdoubles"
	doubles "github.com/rios0rios0/patchseries/test/infrastructure/repositorydoubles"
)

const (
	chromiteProject = "chromiumos/chromite"
	overlayProject  = "chromiumos/overlays/board-overlays"
	chromitePath    = "/build/src/chromite"
	overlayPath     = "/build/src/overlays"
	chromiteBase    = "1111111111111111111111111111111111111111"
	overlayBase     = "2222222222222222222222222222222222222222"
)

type fixture struct {
	review   *doubles.StubReviewRepository
	git      *doubles.SpyGitRepository
	manifest *doubles.StubManifestRepository
	observer *seriesdoubles.SpyObserver
	series   *series.Series
}

func newFixture(options series.Options, changes ...*entities.Change) *fixture {
	review := doubles.NewStubReviewRepository(changes...)
	pool := series.NewHelperPool()
	pool.Bind(entities.RemoteExternal, review)

	git := doubles.NewSpyGitRepository(map[string]string{
		chromitePath: chromiteBase,
		overlayPath:  overlayBase,
	})
	manifest := doubles.NewStubManifestRepository(map[string]string{
		chromiteProject: chromitePath,
		overlayProject:  overlayPath,
	})
	observer := &seriesdoubles.SpyObserver{}

	return &fixture{
		review:   review,
		git:      git,
		manifest: manifest,
		observer: observer,
		series:   series.New(pool, git, options, series.WithObserver(observer)),
	}
}

func aChange(number int) *builders.ChangeBuilder {
	return builders.NewChangeBuilder().WithNumber(number)
}

func numbers(changes []*entities.Change) []string {
	out := make([]string, 0, len(changes))
	for _, change := range changes {
		out = append(out, change.Number)
	}
	return out
}
