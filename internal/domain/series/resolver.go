package series

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// resolution is the state of one BuildTransaction call.
type resolution struct {
	limit    *entities.PatchCache
	hardSeen map[string]struct{}
	softSeen map[string]struct{}
	plan     []*entities.Change
}

// BuildTransaction computes the ordered list of changes that must land
// together with root: its hard (parent commit) dependencies first, then its
// soft (CQ-DEPEND) dependencies, then root itself. Already committed changes
// are left out. When limit is non-nil every uncommitted dependency must belong
// to it.
//
// Every change is placed after its hard and soft dependencies, hard ones
// first. Each change has its hard and soft dependencies expanded at most once
// per call, so dependency cycles terminate; the change is placed where the
// first path reaching it put it.
func (s *Series) BuildTransaction(
	ctx context.Context,
	manifest repositories.ManifestRepository,
	root *entities.Change,
	limit *entities.PatchCache,
) (entities.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "series.BuildTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("change", root.Link()))

	txn := entities.Transaction{Inducing: root}
	if s.committed.Has(root) {
		return txn, nil
	}

	r := &resolution{
		limit:    limit,
		hardSeen: make(map[string]struct{}),
		softSeen: make(map[string]struct{}),
	}
	if err := s.addWithDeps(ctx, manifest, r, root, s.options.MaxDepth); err != nil {
		err = classifyRecursion(root, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolution failed")
		return txn, err
	}

	txn.Changes = r.plan
	span.SetAttributes(attribute.Int("transaction.length", len(r.plan)))
	return txn, nil
}

func (s *Series) addWithDeps(
	ctx context.Context,
	manifest repositories.ManifestRepository,
	r *resolution,
	change *entities.Change,
	depth int,
) error {
	if s.committed.Has(change) {
		return nil
	}
	if depth <= 0 {
		return entities.NewPatchError(
			entities.KindRecursionLimit, change,
			fmt.Sprintf("more than %d levels of dependencies", s.options.MaxDepth),
		)
	}
	if err := ctx.Err(); err != nil {
		return entities.WrapForParent(change, err)
	}

	deps, err := s.dependencies(ctx, manifest, change)
	if err != nil {
		return err
	}

	key := changeKey(change)
	if _, seen := r.hardSeen[key]; !seen {
		hardDeps, lookupErr := s.lookupUncommitted(ctx, change, deps.hard, r.limit)
		if lookupErr != nil {
			return lookupErr
		}
		r.hardSeen[key] = struct{}{}
		// A hard dependency brings its soft dependencies along, ahead of it.
		for _, dep := range hardDeps {
			if depErr := s.addWithDeps(ctx, manifest, r, dep, depth-1); depErr != nil {
				return entities.WrapForParent(change, depErr)
			}
		}
	}

	if _, seen := r.softSeen[key]; !seen {
		softDeps, lookupErr := s.lookupUncommitted(ctx, change, deps.soft, r.limit)
		if lookupErr != nil {
			return lookupErr
		}
		r.softSeen[key] = struct{}{}
		for _, dep := range softDeps {
			if depErr := s.addWithDeps(ctx, manifest, r, dep, depth-1); depErr != nil {
				return entities.WrapForParent(change, depErr)
			}
		}
	}

	if entities.IndexOf(r.plan, change) < 0 {
		r.plan = append(r.plan, change)
	}
	return nil
}

// classifyRecursion turns a raw recursion-limit failure into the form
// reported for root: at root when root itself ran out of budget, in chain
// when a deeper dependency did.
func classifyRecursion(root *entities.Change, err error) error {
	var patchErr *entities.PatchError
	if !errors.As(err, &patchErr) {
		return entities.WrapForParent(root, err)
	}
	cause := patchErr.Root()
	if cause.Kind != entities.KindRecursionLimit {
		return err
	}
	if cause.Change == root {
		return &entities.PatchError{
			Kind:    entities.KindRecursionAtRoot,
			Change:  root,
			Message: cause.Message,
		}
	}
	return &entities.PatchError{
		Kind:    entities.KindRecursionInChain,
		Change:  root,
		Cause:   err,
		Message: cause.Message,
	}
}
