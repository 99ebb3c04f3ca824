//go:build unit

package series_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
	"github.com/rios0rios0/patchseries/internal/domain/series"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	t.Run("should answer repeated queries from the cache", func(t *testing.T) {
		t.Parallel()

		// given
		change := aChange(42).BuildChange()
		f := newFixture(series.Options{}, change)
		byNumber := entities.PatchQuery{Remote: entities.RemoteExternal, Number: "42"}

		// when
		first, err := f.series.Lookup(context.Background(), byNumber)
		require.NoError(t, err)
		second, err := f.series.Lookup(context.Background(), byNumber)

		// then
		require.NoError(t, err)
		assert.Same(t, change, first)
		assert.Same(t, first, second)
		assert.Len(t, f.review.Queries, 1)
	})

	t.Run("should find a change under any of its aliases once resolved", func(t *testing.T) {
		t.Parallel()

		// given
		change := aChange(42).BuildChange()
		f := newFixture(series.Options{}, change)
		_, err := f.series.Lookup(context.Background(), entities.PatchQuery{Remote: entities.RemoteExternal, Number: "42"})
		require.NoError(t, err)

		// when
		bySHA1, err := f.series.Lookup(context.Background(), entities.PatchQuery{
			Remote: entities.RemoteExternal, SHA1: change.SHA1,
		})

		// then
		require.NoError(t, err)
		assert.Same(t, change, bySHA1)
		assert.Len(t, f.review.Queries, 1)
	})

	t.Run("should return nothing for a commit that never went through review", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(series.Options{})

		// when
		change, err := f.series.Lookup(context.Background(), entities.PatchQuery{
			Remote: entities.RemoteExternal, SHA1: "4444444444444444444444444444444444444444",
		})

		// then
		require.NoError(t, err)
		assert.Nil(t, change)
	})

	t.Run("should fail for an unknown change number", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(series.Options{})

		// when
		_, err := f.series.Lookup(context.Background(), entities.PatchQuery{
			Remote: entities.RemoteExternal, Number: "7",
		})

		// then
		assert.ErrorIs(t, err, repositories.ErrChangeNotFound)
	})

	t.Run("should report a remote the run has no access to", func(t *testing.T) {
		t.Parallel()

		// given
		f := newFixture(series.Options{})

		// when
		_, err := f.series.Lookup(context.Background(), entities.PatchQuery{
			Remote: entities.RemoteInternal, Number: "7",
		})

		// then
		assert.ErrorIs(t, err, repositories.ErrRemoteUnavailable)
		assert.Empty(t, f.review.Queries)
	})

	t.Run("should remember merged changes as committed", func(t *testing.T) {
		t.Parallel()

		// given
		merged := aChange(5).WithStatus(entities.StatusMerged).BuildChange()
		f := newFixture(series.Options{}, merged)

		// when
		change, err := f.series.Lookup(context.Background(), merged.Query())

		// then
		require.NoError(t, err)
		assert.Same(t, merged, change)
		assert.True(t, f.series.IsCommitted(merged))
		assert.Equal(t, []*entities.Change{merged}, f.series.Committed())
	})

	t.Run("should prefer changes injected into the cache", func(t *testing.T) {
		t.Parallel()

		// given
		injected := aChange(9).BuildChange()
		f := newFixture(series.Options{})
		f.series.InjectLookupCache(injected)

		// when
		change, err := f.series.Lookup(context.Background(), injected.Query())

		// then
		require.NoError(t, err)
		assert.Same(t, injected, change)
		assert.Empty(t, f.review.Queries)
	})
}
