//go:build unit

package series_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/series"
)

func roots(planned []entities.PlannedTransaction) []string {
	out := make([]string, 0, len(planned))
	for _, p := range planned {
		out = append(out, p.Root.Number)
	}
	return out
}

func TestPlan(t *testing.T) {
	t.Parallel()

	t.Run("should order transactions longest first keeping input order on ties", func(t *testing.T) {
		t.Parallel()

		// given
		single := aChange(1).BuildChange()
		dep := aChange(2).BuildChange()
		pair := aChange(3).WithParents(dep).BuildChange()
		other := aChange(4).BuildChange()
		f := newFixture(series.Options{}, single, dep, pair, other)

		// when
		planned := f.series.Plan(
			context.Background(), f.manifest, []*entities.Change{single, pair, other}, nil, false,
		)

		// then
		assert.Equal(t, []string{"3", "1", "4"}, roots(planned))
	})

	t.Run("should keep the input order when asked to", func(t *testing.T) {
		t.Parallel()

		// given
		single := aChange(1).BuildChange()
		dep := aChange(2).BuildChange()
		pair := aChange(3).WithParents(dep).BuildChange()
		f := newFixture(series.Options{}, single, dep, pair)

		// when
		planned := f.series.Plan(
			context.Background(), f.manifest, []*entities.Change{single, pair}, nil, true,
		)

		// then
		assert.Equal(t, []string{"1", "3"}, roots(planned))
	})

	t.Run("should report a failing root without affecting the others", func(t *testing.T) {
		t.Parallel()

		// given
		good := aChange(1).BuildChange()
		bad := aChange(2).BuildChange()
		f := newFixture(series.Options{}, good, bad)
		f.review.DepsErrs["2"] = errors.New("permission denied")

		// when
		planned := f.series.Plan(
			context.Background(), f.manifest, []*entities.Change{bad, good}, nil, false,
		)

		// then
		require.Len(t, planned, 2)
		assert.Same(t, good, planned[0].Root)
		require.NoError(t, planned[0].Err)
		assert.Same(t, bad, planned[1].Root)
		assert.Error(t, planned[1].Err)
	})
}

func TestDependMap(t *testing.T) {
	t.Parallel()

	t.Run("should map every dependency to the roots needing it", func(t *testing.T) {
		t.Parallel()

		// given
		shared := aChange(1).BuildChange()
		first := aChange(2).WithParents(shared).BuildChange()
		second := aChange(3).WithCQDepend("1").BuildChange()
		f := newFixture(series.Options{}, shared, first, second)

		// when
		dependents, failed := f.series.DependMap(
			context.Background(), f.manifest, []*entities.Change{first, second},
		)

		// then
		assert.Empty(t, failed)
		assert.Equal(t, []string{"2", "3"}, numbers(dependents[shared]))
		assert.NotContains(t, dependents, first)
	})
}
