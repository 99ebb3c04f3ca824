//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"sync"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// SpyGitRepository implements repositories.GitRepository in memory: every
// repository has a HEAD, applying a change moves HEAD to the change's commit
// and a hard reset moves it back.
type SpyGitRepository struct {
	mu sync.Mutex

	// --- CurrentHead ---
	Heads   map[string]string
	HeadErr error

	// --- HardReset ---
	Resets   []entities.ProjectState
	ResetErr error

	// --- FetchChange ---
	FetchErrs map[string]error // by change number
	Fetches   []string         // change numbers, in call order

	// --- MaterializeChange ---
	MaterializeErrs map[string]error // by change number
	PanicOn         string           // change number
	Materialized    []string         // change numbers, in call order
	Upstreams       []string
}

var _ repositories.GitRepository = (*SpyGitRepository)(nil)

// NewSpyGitRepository creates a spy with the given repositories at the given HEADs.
func NewSpyGitRepository(heads map[string]string) *SpyGitRepository {
	if heads == nil {
		heads = make(map[string]string)
	}
	return &SpyGitRepository{
		Heads:           heads,
		FetchErrs:       make(map[string]error),
		MaterializeErrs: make(map[string]error),
	}
}

func (s *SpyGitRepository) CurrentHead(_ context.Context, repoPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.HeadErr != nil {
		return "", s.HeadErr
	}
	return s.Heads[repoPath], nil
}

func (s *SpyGitRepository) HardReset(_ context.Context, repoPath, sha1 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Resets = append(s.Resets, entities.ProjectState{RepoPath: repoPath, SHA1: sha1})
	if s.ResetErr != nil {
		return s.ResetErr
	}
	s.Heads[repoPath] = sha1
	return nil
}

func (s *SpyGitRepository) FetchChange(_ context.Context, _ string, change *entities.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetches = append(s.Fetches, change.Number)
	return s.FetchErrs[change.Number]
}

func (s *SpyGitRepository) MaterializeChange(
	_ context.Context,
	repoPath string,
	change *entities.Change,
	upstream string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Materialized = append(s.Materialized, change.Number)
	s.Upstreams = append(s.Upstreams, upstream)
	if s.PanicOn != "" && s.PanicOn == change.Number {
		panic("materialize " + change.Number)
	}
	if err := s.MaterializeErrs[change.Number]; err != nil {
		return err
	}
	s.Heads[repoPath] = change.SHA1
	return nil
}

// Head returns the current HEAD of repoPath.
func (s *SpyGitRepository) Head(repoPath string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Heads[repoPath]
}
