package repositories

import (
	"context"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
)

// GitRepository is the set of working-copy operations needed to land changes.
type GitRepository interface {
	// CurrentHead returns the commit checked out in repoPath.
	CurrentHead(ctx context.Context, repoPath string) (string, error)
	// HardReset moves repoPath to sha1, discarding any local modification.
	HardReset(ctx context.Context, repoPath, sha1 string) error
	// FetchChange makes the change's commit available in the local object store.
	FetchChange(ctx context.Context, repoPath string, change *entities.Change) error
	// MaterializeChange applies the change on top of the checked-out tree with a
	// full content merge. upstream is the repository's top-of-tree commit, used
	// to tell conflicts with ToT apart from conflicts with changes applied earlier.
	// Failures are returned as *entities.PatchError.
	MaterializeChange(ctx context.Context, repoPath string, change *entities.Change, upstream string) error
}
