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

func transaction(inducing *entities.Change, changes ...*entities.Change) entities.Transaction {
	return entities.Transaction{Inducing: inducing, Changes: changes}
}

func TestApplyTransaction(t *testing.T) {
	t.Parallel()

	t.Run("should apply every change in order and mark them committed", func(t *testing.T) {
		t.Parallel()

		// given
		dep := aChange(1).BuildChange()
		overlay := aChange(2).WithProject(overlayProject).BuildChange()
		root := aChange(3).BuildChange()
		f := newFixture(series.Options{}, dep, overlay, root)

		// when
		applied, err := f.series.ApplyTransaction(
			context.Background(), f.manifest, transaction(root, dep, overlay, root),
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3"}, numbers(applied))
		assert.Equal(t, []string{"1", "2", "3"}, f.git.Materialized)
		assert.Equal(t, root.SHA1, f.git.Head(chromitePath))
		assert.Equal(t, overlay.SHA1, f.git.Head(overlayPath))
		assert.True(t, f.series.IsCommitted(dep))
		assert.True(t, f.series.IsCommitted(root))
		assert.Equal(t, []int{3}, f.observer.Applied)
		assert.Empty(t, f.git.Resets)
	})

	t.Run("should apply a transaction that has no inducing change", func(t *testing.T) {
		t.Parallel()

		// given
		change := aChange(1).BuildChange()
		f := newFixture(series.Options{}, change)

		// when
		applied, err := f.series.ApplyTransaction(
			context.Background(), f.manifest, entities.Transaction{Changes: []*entities.Change{change}},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, numbers(applied))
		assert.True(t, f.series.IsCommitted(change))
	})

	t.Run("should report a failure of a transaction that has no inducing change", func(t *testing.T) {
		t.Parallel()

		// given
		change := aChange(1).BuildChange()
		f := newFixture(series.Options{}, change)
		f.git.MaterializeErrs["1"] = entities.NewApplyError(change, false, nil, "conflict")

		// when
		_, err := f.series.ApplyTransaction(
			context.Background(), f.manifest, entities.Transaction{Changes: []*entities.Change{change}},
		)

		// then
		require.Error(t, err)
		assert.False(t, f.series.IsCommitted(change))
		assert.Equal(t, chromiteBase, f.git.Head(chromitePath))
	})

	t.Run("should report an unreadable HEAD for a transaction that has no inducing change", func(t *testing.T) {
		t.Parallel()

		// given
		change := aChange(1).BuildChange()
		f := newFixture(series.Options{}, change)
		f.git.HeadErr = errors.New("bad object HEAD")

		// when
		_, err := f.series.ApplyTransaction(
			context.Background(), f.manifest, entities.Transaction{Changes: []*entities.Change{change}},
		)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), change.Link())
	})

	t.Run("should do nothing when the transaction was already applied", func(t *testing.T) {
		t.Parallel()

		// given
		dep := aChange(1).BuildChange()
		root := aChange(2).BuildChange()
		f := newFixture(series.Options{}, dep, root)
		txn := transaction(root, dep, root)
		_, err := f.series.ApplyTransaction(context.Background(), f.manifest, txn)
		require.NoError(t, err)

		// when
		applied, err := f.series.ApplyTransaction(context.Background(), f.manifest, txn)

		// then
		require.NoError(t, err)
		assert.Empty(t, applied)
		assert.Equal(t, []string{"1", "2"}, f.git.Materialized)
		assert.Equal(t, root.SHA1, f.git.Head(chromitePath))
	})

	t.Run("should roll every touched repository back when a change fails", func(t *testing.T) {
		t.Parallel()

		// given
		dep := aChange(1).BuildChange()
		overlay := aChange(2).WithProject(overlayProject).BuildChange()
		root := aChange(3).BuildChange()
		f := newFixture(series.Options{}, dep, overlay, root)
		f.git.MaterializeErrs["3"] = entities.NewApplyError(root, false, []string{"cbuildbot/stages.py"}, "")

		// when
		applied, err := f.series.ApplyTransaction(
			context.Background(), f.manifest, transaction(root, dep, overlay, root),
		)

		// then
		require.Error(t, err)
		assert.Empty(t, applied)
		assert.Equal(t, chromiteBase, f.git.Head(chromitePath))
		assert.Equal(t, overlayBase, f.git.Head(overlayPath))
		assert.False(t, f.series.IsCommitted(dep))
		assert.False(t, f.series.IsCommitted(overlay))
		assert.Empty(t, f.series.Committed())
		assert.Equal(t, []string{entities.KindApplyFailure.String()}, f.observer.RolledBack)
	})

	t.Run("should attribute a dependency's failure to the inducing change", func(t *testing.T) {
		t.Parallel()

		// given
		dep := aChange(1).BuildChange()
		root := aChange(2).BuildChange()
		f := newFixture(series.Options{}, dep, root)
		f.git.MaterializeErrs["1"] = entities.NewApplyError(dep, false, nil, "")

		// when
		_, err := f.series.ApplyTransaction(context.Background(), f.manifest, transaction(root, dep, root))

		// then
		var patchErr *entities.PatchError
		require.ErrorAs(t, err, &patchErr)
		assert.Equal(t, entities.KindDependency, patchErr.Kind)
		assert.Same(t, root, patchErr.Change)
		assert.Same(t, dep, patchErr.Root().Change)
		assert.Equal(t, entities.KindApplyFailure, patchErr.Root().Kind)
	})

	t.Run("should not retry a change that failed against ToT earlier in the run", func(t *testing.T) {
		t.Parallel()

		// given
		dep := aChange(1).BuildChange()
		first := aChange(2).BuildChange()
		second := aChange(3).BuildChange()
		f := newFixture(series.Options{}, dep, first, second)
		f.git.MaterializeErrs["1"] = entities.NewApplyError(dep, false, nil, "")
		_, err := f.series.ApplyTransaction(context.Background(), f.manifest, transaction(first, dep, first))
		require.Error(t, err)

		// when
		_, err = f.series.ApplyTransaction(context.Background(), f.manifest, transaction(second, dep, second))

		// then
		var patchErr *entities.PatchError
		require.ErrorAs(t, err, &patchErr)
		assert.Same(t, second, patchErr.Change)
		assert.Same(t, dep, patchErr.Root().Change)
		assert.Equal(t, []string{"1"}, f.git.Materialized)
		_, remembered := f.series.FailedToT(dep)
		assert.True(t, remembered)
	})

	t.Run("should retry a change that only failed against the in-flight series", func(t *testing.T) {
		t.Parallel()

		// given
		dep := aChange(1).BuildChange()
		f := newFixture(series.Options{}, dep)
		f.git.MaterializeErrs["1"] = entities.NewApplyError(dep, true, nil, "")
		_, err := f.series.ApplyTransaction(context.Background(), f.manifest, transaction(dep, dep))
		require.Error(t, err)
		assert.True(t, entities.IsInflight(err))
		delete(f.git.MaterializeErrs, "1")

		// when
		applied, err := f.series.ApplyTransaction(context.Background(), f.manifest, transaction(dep, dep))

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, numbers(applied))
		_, remembered := f.series.FailedToT(dep)
		assert.False(t, remembered)
	})

	t.Run("should apply against the HEAD each repository had when the run first touched it", func(t *testing.T) {
		t.Parallel()

		// given
		first := aChange(1).BuildChange()
		second := aChange(2).BuildChange()
		f := newFixture(series.Options{}, first, second)

		// when
		_, err := f.series.ApplyTransaction(context.Background(), f.manifest, transaction(first, first))
		require.NoError(t, err)
		_, err = f.series.ApplyTransaction(context.Background(), f.manifest, transaction(second, second))

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{chromiteBase, chromiteBase}, f.git.Upstreams)
	})

	t.Run("should fail before applying anything when a HEAD cannot be read", func(t *testing.T) {
		t.Parallel()

		// given
		root := aChange(1).BuildChange()
		f := newFixture(series.Options{}, root)
		f.git.HeadErr = errors.New("not a git repository")

		// when
		_, err := f.series.ApplyTransaction(context.Background(), f.manifest, transaction(root, root))

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, f.git.HeadErr)
		assert.Empty(t, f.git.Materialized)
		assert.Empty(t, f.git.Resets)
	})

	t.Run("should fail a change whose project has no checkout", func(t *testing.T) {
		t.Parallel()

		// given
		root := aChange(1).WithProject("chromiumos/nowhere").BuildChange()
		f := newFixture(series.Options{}, root)

		// when
		_, err := f.series.ApplyTransaction(context.Background(), f.manifest, transaction(root, root))

		// then
		kind, ok := entities.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, entities.KindNotInManifest, kind)
		assert.Empty(t, f.git.Materialized)
	})

	t.Run("should roll back when applying panics", func(t *testing.T) {
		t.Parallel()

		// given
		dep := aChange(1).BuildChange()
		root := aChange(2).BuildChange()
		f := newFixture(series.Options{}, dep, root)
		f.git.PanicOn = "2"

		// when
		assert.Panics(t, func() {
			_, _ = f.series.ApplyTransaction(context.Background(), f.manifest, transaction(root, dep, root))
		})

		// then
		assert.Equal(t, chromiteBase, f.git.Head(chromitePath))
		assert.False(t, f.series.IsCommitted(dep))
		assert.Equal(t, []string{"panic"}, f.observer.RolledBack)
	})
}

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("should apply independent transactions even when one of them fails", func(t *testing.T) {
		t.Parallel()

		// given
		good := aChange(1).BuildChange()
		bad := aChange(2).WithProject(overlayProject).BuildChange()
		f := newFixture(series.Options{}, good, bad)
		f.git.MaterializeErrs["2"] = entities.NewApplyError(bad, false, nil, "")

		// when
		result, err := f.series.Apply(
			context.Background(), f.manifest, []*entities.Change{good, bad}, series.ApplyOptions{},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, numbers(result.Applied))
		require.Len(t, result.FailedToT, 1)
		assert.Same(t, bad, result.FailedToT[0].Change)
		assert.Empty(t, result.FailedInflight)
		assert.Len(t, result.Results, 2)
		assert.Equal(t, good.SHA1, f.git.Head(chromitePath))
		assert.Equal(t, overlayBase, f.git.Head(overlayPath))
	})

	t.Run("should pull dependencies in and apply them first", func(t *testing.T) {
		t.Parallel()

		// given
		dep := aChange(1).BuildChange()
		root := aChange(2).WithParents(dep).BuildChange()
		f := newFixture(series.Options{}, dep, root)

		// when
		result, err := f.series.Apply(
			context.Background(), f.manifest, []*entities.Change{root}, series.ApplyOptions{},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, numbers(result.Applied))
		assert.ElementsMatch(t, []string{"2", "1"}, f.git.Fetches)
	})

	t.Run("should refuse dependencies outside the given changes when frozen", func(t *testing.T) {
		t.Parallel()

		// given
		dep := aChange(1).BuildChange()
		root := aChange(2).WithParents(dep).BuildChange()
		f := newFixture(series.Options{}, dep, root)

		// when
		result, err := f.series.Apply(
			context.Background(), f.manifest, []*entities.Change{root}, series.ApplyOptions{Frozen: true},
		)

		// then
		require.NoError(t, err)
		assert.Empty(t, result.Applied)
		require.Len(t, result.FailedToT, 1)
		assert.Equal(t, entities.KindNotEligible, result.FailedToT[0].Root().Kind)
		assert.Empty(t, f.git.Materialized)
	})

	t.Run("should report a root that could not be fetched", func(t *testing.T) {
		t.Parallel()

		// given
		root := aChange(1).BuildChange()
		f := newFixture(series.Options{}, root)
		f.git.FetchErrs["1"] = errors.New("connection reset")

		// when
		result, err := f.series.Apply(
			context.Background(), f.manifest, []*entities.Change{root}, series.ApplyOptions{},
		)

		// then
		require.NoError(t, err)
		require.Len(t, result.FailedToT, 1)
		assert.Same(t, root, result.FailedToT[0].Change)
		assert.Empty(t, f.git.Materialized)
	})

	t.Run("should count a change already present in the tree as a failure", func(t *testing.T) {
		t.Parallel()

		// given
		root := aChange(1).BuildChange()
		f := newFixture(series.Options{}, root)
		f.git.MaterializeErrs["1"] = entities.NewPatchError(entities.KindAlreadyApplied, root, "")

		// when
		result, err := f.series.Apply(
			context.Background(), f.manifest, []*entities.Change{root}, series.ApplyOptions{},
		)

		// then
		require.NoError(t, err)
		require.Len(t, result.FailedToT, 1)
		assert.Equal(t, entities.KindAlreadyApplied, result.FailedToT[0].Kind)
	})

	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		t.Parallel()

		// given
		root := aChange(1).BuildChange()
		f := newFixture(series.Options{}, root)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// when
		result, err := f.series.Apply(ctx, f.manifest, []*entities.Change{root}, series.ApplyOptions{})

		// then
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, result.Applied)
	})
}
