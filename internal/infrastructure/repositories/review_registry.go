package repositories

import (
	"fmt"
	"sort"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	domainRepos "github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// ReviewFactory creates a ReviewRepository serving remote from its configuration.
type ReviewFactory func(remote entities.Remote, cfg entities.RemoteConfig) domainRepos.ReviewRepository

// ReviewRegistry manages all registered review-service implementations.
type ReviewRegistry struct {
	factories map[string]ReviewFactory
}

// NewReviewRegistry creates an empty review registry.
func NewReviewRegistry() *ReviewRegistry {
	return &ReviewRegistry{
		factories: make(map[string]ReviewFactory),
	}
}

// Register adds a review factory under the given type name (e.g. "gerrit").
func (r *ReviewRegistry) Register(name string, factory ReviewFactory) {
	r.factories[name] = factory
}

// Get returns a configured review repository for the given remote.
func (r *ReviewRegistry) Get(remote entities.Remote, cfg entities.RemoteConfig) (domainRepos.ReviewRepository, error) {
	factory, ok := r.factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown review service type: %q", cfg.Type)
	}
	return factory(remote, cfg), nil
}

// Names returns the sorted list of registered type names.
func (r *ReviewRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
