//go:build unit

package series_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
	"github.com/rios0rios0/patchseries/internal/domain/series"
	doubles "github.com/rios0rios0/patchseries/test/infrastructure/repositorydoubles"
)

func TestHelperPool(t *testing.T) {
	t.Parallel()

	t.Run("should route each remote to the repository bound to it", func(t *testing.T) {
		t.Parallel()

		// given
		external := doubles.NewStubReviewRepository()
		internal := doubles.NewStubReviewRepository()
		pool := series.NewHelperPool()
		pool.Bind(entities.RemoteExternal, external)
		pool.Bind(entities.RemoteInternal, internal)

		// when
		got, err := pool.ForRemote(entities.RemoteInternal)

		// then
		require.NoError(t, err)
		assert.Same(t, internal, got)
		assert.Equal(t, []entities.Remote{entities.RemoteExternal, entities.RemoteInternal}, pool.Remotes())
	})

	t.Run("should make a remote unavailable when bound to nil", func(t *testing.T) {
		t.Parallel()

		// given
		pool := series.NewHelperPool()
		pool.Bind(entities.RemoteInternal, doubles.NewStubReviewRepository())
		pool.Bind(entities.RemoteInternal, nil)

		// when
		_, err := pool.ForRemote(entities.RemoteInternal)

		// then
		require.ErrorIs(t, err, repositories.ErrRemoteUnavailable)
		assert.Empty(t, pool.Remotes())
	})

	t.Run("should attribute an unavailable remote to the change", func(t *testing.T) {
		t.Parallel()

		// given
		pool := series.NewHelperPool()
		change := aChange(1).WithRemote(entities.RemoteInternal).BuildChange()

		// when
		_, err := pool.ForChange(change)

		// then
		var patchErr *entities.PatchError
		require.ErrorAs(t, err, &patchErr)
		assert.Equal(t, entities.KindRemoteUnavailable, patchErr.Kind)
		assert.Same(t, change, patchErr.Change)
		assert.ErrorIs(t, err, repositories.ErrRemoteUnavailable)
	})
}
