package repositories

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	domainRepos "github.com/rios0rios0/patchseries/internal/domain/repositories"
	"github.com/rios0rios0/patchseries/internal/telemetry"
)

const reviewScopeName = "github.com/rios0rios0/patchseries/review"

// InstrumentedReviewRepository wraps a ReviewRepository with a span and a
// Prometheus observation per call.
type InstrumentedReviewRepository struct {
	inner   domainRepos.ReviewRepository
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// WrapReviewRepository decorates inner. It returns inner unchanged when metrics is nil.
func WrapReviewRepository(inner domainRepos.ReviewRepository, metrics *telemetry.Metrics) domainRepos.ReviewRepository {
	if metrics == nil {
		return inner
	}
	return &InstrumentedReviewRepository{
		inner:   inner,
		metrics: metrics,
		tracer:  telemetry.Tracer(reviewScopeName),
	}
}

func (it *InstrumentedReviewRepository) Host() string {
	return it.inner.Host()
}

func (it *InstrumentedReviewRepository) QueryChange(
	ctx context.Context,
	query entities.PatchQuery,
) (*entities.Change, error) {
	ctx, span, start := it.op(ctx, "query_change", attribute.String("query", query.String()))
	change, err := it.inner.QueryChange(ctx, query)
	it.done(span, start, "query_change", err)
	return change, err
}

func (it *InstrumentedReviewRepository) GetHardDeps(
	ctx context.Context,
	change *entities.Change,
) ([]entities.PatchQuery, error) {
	ctx, span, start := it.op(ctx, "get_hard_deps", attribute.String("change", change.Link()))
	deps, err := it.inner.GetHardDeps(ctx, change)
	it.done(span, start, "get_hard_deps", err)
	return deps, err
}

func (it *InstrumentedReviewRepository) GetSoftDeps(
	ctx context.Context,
	change *entities.Change,
	repoPath string,
) ([]entities.PatchQuery, error) {
	ctx, span, start := it.op(ctx, "get_soft_deps", attribute.String("change", change.Link()))
	deps, err := it.inner.GetSoftDeps(ctx, change, repoPath)
	it.done(span, start, "get_soft_deps", err)
	return deps, err
}

func (it *InstrumentedReviewRepository) op(
	ctx context.Context,
	name string,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("review.host", it.inner.Host())}, attrs...)
	ctx, span := it.tracer.Start(ctx, "review."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, span, time.Now()
}

func (it *InstrumentedReviewRepository) done(span trace.Span, start time.Time, name string, err error) {
	it.metrics.ObserveReviewQuery(it.inner.Host(), name, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
