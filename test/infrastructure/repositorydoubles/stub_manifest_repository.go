//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"fmt"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// StubManifestRepository maps projects to working copies.
type StubManifestRepository struct {
	Paths map[string]string // project -> repo path
}

var _ repositories.ManifestRepository = (*StubManifestRepository)(nil)

// NewStubManifestRepository creates a manifest from project -> path pairs.
func NewStubManifestRepository(paths map[string]string) *StubManifestRepository {
	return &StubManifestRepository{Paths: paths}
}

func (s *StubManifestRepository) PathForChange(change *entities.Change) (string, error) {
	if path, ok := s.Paths[change.Project]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s", repositories.ErrNotInManifest, change.Project)
}
