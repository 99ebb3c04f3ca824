package series

import (
	"fmt"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// HelperPool routes each remote to the review repository serving it.
// A remote without a repository is unavailable to the run.
type HelperPool struct {
	helpers map[entities.Remote]repositories.ReviewRepository
}

// NewHelperPool creates an empty pool.
func NewHelperPool() *HelperPool {
	return &HelperPool{helpers: make(map[entities.Remote]repositories.ReviewRepository)}
}

// Bind serves remote with helper. A nil helper makes the remote unavailable.
func (p *HelperPool) Bind(remote entities.Remote, helper repositories.ReviewRepository) {
	if helper == nil {
		delete(p.helpers, remote)
		return
	}
	p.helpers[remote] = helper
}

// ForRemote returns the repository serving remote, or an error wrapping
// repositories.ErrRemoteUnavailable.
func (p *HelperPool) ForRemote(remote entities.Remote) (repositories.ReviewRepository, error) {
	helper, ok := p.helpers[remote]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repositories.ErrRemoteUnavailable, remote)
	}
	return helper, nil
}

// ForChange is ForRemote for the remote of change, failing with a
// KindRemoteUnavailable PatchError.
func (p *HelperPool) ForChange(change *entities.Change) (repositories.ReviewRepository, error) {
	helper, err := p.ForRemote(change.Remote)
	if err != nil {
		return nil, &entities.PatchError{
			Kind:   entities.KindRemoteUnavailable,
			Change: change,
			Cause:  err,
		}
	}
	return helper, nil
}

// Remotes returns the bound remotes in a stable order.
func (p *HelperPool) Remotes() []entities.Remote {
	var bound []entities.Remote
	for _, remote := range entities.Remotes() {
		if _, ok := p.helpers[remote]; ok {
			bound = append(bound, remote)
		}
	}
	return bound
}
