package repositories

import (
	"context"
	"errors"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
)

var (
	// ErrChangeNotFound is returned when the review service has no change matching a query.
	ErrChangeNotFound = errors.New("change not found")
	// ErrQueryNotSpecific is returned when a query matches more than one change.
	ErrQueryNotSpecific = errors.New("query matches more than one change")
	// ErrRemoteUnavailable is returned when no review service is bound for a remote.
	ErrRemoteUnavailable = errors.New("remote unavailable")
)

// ReviewRepository abstracts one review-service instance (e.g. a Gerrit host).
// It must report ErrChangeNotFound distinctly from transport or auth failures.
type ReviewRepository interface {
	// Host returns the host name this repository talks to.
	Host() string
	// QueryChange resolves a reference into a change.
	QueryChange(ctx context.Context, query entities.PatchQuery) (*entities.Change, error)
	// GetHardDeps returns the parent-commit dependencies of a change.
	GetHardDeps(ctx context.Context, change *entities.Change) ([]entities.PatchQuery, error)
	// GetSoftDeps returns the CQ-DEPEND dependencies declared by a change.
	// repoPath is the change's working copy, or "" when it has none.
	GetSoftDeps(ctx context.Context, change *entities.Change, repoPath string) ([]entities.PatchQuery, error)
}
