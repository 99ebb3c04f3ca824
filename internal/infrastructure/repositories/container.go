package repositories

import (
	"go.uber.org/dig"

	domainRepos "github.com/rios0rios0/patchseries/internal/domain/repositories"
	gerritRepo "github.com/rios0rios0/patchseries/internal/infrastructure/repositories/gerrit"
	gitRepo "github.com/rios0rios0/patchseries/internal/infrastructure/repositories/git"
)

// GitRepositoryFactory creates the working-copy repository of one run,
// authenticating fetches with the credentials of the enabled remotes.
type GitRepositoryFactory func(credentials ...gitRepo.Credential) domainRepos.GitRepository

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register review registry with all review-service factories
	if err := container.Provide(func() *ReviewRegistry {
		reg := NewReviewRegistry()
		reg.Register("gerrit", gerritRepo.NewReviewRepository)
		return reg
	}); err != nil {
		return err
	}

	if err := container.Provide(func() GitRepositoryFactory {
		return func(credentials ...gitRepo.Credential) domainRepos.GitRepository {
			return gitRepo.NewGitRepository(credentials...)
		}
	}); err != nil {
		return err
	}

	return nil
}
