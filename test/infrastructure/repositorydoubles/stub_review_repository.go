//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, dummies) for
// repository interfaces. These are hand-crafted implementations, no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// StubReviewRepository implements repositories.ReviewRepository over an
// in-memory set of changes. Hard dependencies come from ParentSHA1s and soft
// ones from the CQ-DEPEND lines of CommitMessage, like on a real Gerrit.
type StubReviewRepository struct {
	// --- identity ---
	HostName string

	// --- QueryChange ---
	Changes  []*entities.Change
	QueryErr error
	Queries  []entities.PatchQuery

	// --- GetHardDeps / GetSoftDeps ---
	DepsErrs      map[string]error // by change number
	HardDepsCalls map[string]int
	SoftDepsCalls map[string]int
	SoftRepoPaths []string
}

var _ repositories.ReviewRepository = (*StubReviewRepository)(nil)

// NewStubReviewRepository creates a stub serving changes.
func NewStubReviewRepository(changes ...*entities.Change) *StubReviewRepository {
	return &StubReviewRepository{
		HostName:      "https://review.example.com",
		Changes:       changes,
		DepsErrs:      make(map[string]error),
		HardDepsCalls: make(map[string]int),
		SoftDepsCalls: make(map[string]int),
	}
}

func (s *StubReviewRepository) Host() string { return s.HostName }

func (s *StubReviewRepository) QueryChange(
	_ context.Context,
	query entities.PatchQuery,
) (*entities.Change, error) {
	s.Queries = append(s.Queries, query)
	if s.QueryErr != nil {
		return nil, s.QueryErr
	}

	for _, change := range s.Changes {
		if change.Remote != query.Remote {
			continue
		}
		if query.Number != "" && query.Number == change.Number {
			return change, nil
		}
		if query.SHA1 != "" && query.SHA1 == change.SHA1 {
			return change, nil
		}
		if query.Number == "" && query.SHA1 == "" && query.ChangeID != "" && query.ChangeID == change.ChangeID {
			return change, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", repositories.ErrChangeNotFound, query)
}

func (s *StubReviewRepository) GetHardDeps(
	_ context.Context,
	change *entities.Change,
) ([]entities.PatchQuery, error) {
	s.HardDepsCalls[change.Number]++
	if err := s.DepsErrs[change.Number]; err != nil {
		return nil, err
	}
	deps := make([]entities.PatchQuery, 0, len(change.ParentSHA1s))
	for _, parent := range change.ParentSHA1s {
		deps = append(deps, entities.PatchQuery{Remote: change.Remote, SHA1: parent})
	}
	return deps, nil
}

func (s *StubReviewRepository) GetSoftDeps(
	_ context.Context,
	change *entities.Change,
	repoPath string,
) ([]entities.PatchQuery, error) {
	s.SoftDepsCalls[change.Number]++
	s.SoftRepoPaths = append(s.SoftRepoPaths, repoPath)
	deps, err := entities.ParseCQDepends(change.CommitMessage)
	if err != nil {
		return nil, entities.NewPatchError(entities.KindMalformedDependency, change, err.Error())
	}
	return deps, nil
}
