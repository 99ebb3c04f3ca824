package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/series"
	infraRepos "github.com/rios0rios0/patchseries/internal/infrastructure/repositories"
)

// Plan is the interface for the plan command.
type Plan interface {
	Execute(ctx context.Context, settings *entities.Settings, opts PlanOptions) (*PlanReport, error)
}

// PlanOptions holds runtime options for a single plan run.
type PlanOptions struct {
	Changes       []string
	Verbose       bool
	Disjoint      bool // merge overlapping transactions
	MaxLength     int  // with Disjoint, defer roots that would exceed this many changes
	DependMap     bool // also report which roots depend on each change
	HonorOrdering bool
}

// PlanReport is what a plan run computed. Nothing is fetched or applied.
type PlanReport struct {
	Transactions []entities.PlannedTransaction
	Disjoint     *series.DisjointResult
	Dependents   map[*entities.Change][]*entities.Change
}

// PlanCommand resolves changes into transactions without touching any checkout.
type PlanCommand struct {
	reviewRegistry *infraRepos.ReviewRegistry
	gitFactory     infraRepos.GitRepositoryFactory
}

// NewPlanCommand creates a new PlanCommand.
func NewPlanCommand(
	reviewRegistry *infraRepos.ReviewRegistry,
	gitFactory infraRepos.GitRepositoryFactory,
) *PlanCommand {
	return &PlanCommand{
		reviewRegistry: reviewRegistry,
		gitFactory:     gitFactory,
	}
}

// Execute prints the transactions the given changes resolve to.
func (it *PlanCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts PlanOptions,
) (*PlanReport, error) {
	if opts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}
	log := logger.WithField("run_id", uuid.NewString())

	env, err := newRunEnvironment(it.reviewRegistry, it.gitFactory, settings, log)
	if err != nil {
		return nil, err
	}
	defer env.writeMetrics(settings.MetricsFile)

	roots, err := env.resolveRoots(ctx, opts.Changes)
	if err != nil {
		return nil, err
	}

	report := &PlanReport{}
	failures := 0

	if opts.Disjoint {
		disjoint := env.series.CreateDisjointTransactions(ctx, env.manifest, roots, opts.MaxLength)
		report.Disjoint = &disjoint
		for i, txn := range disjoint.Transactions {
			log.Infof("Transaction %d: [%s]", i+1, entities.ChangeLinks(txn.Changes))
		}
		if len(disjoint.Deferred) > 0 {
			log.Infof("Deferred: %s", entities.ChangeLinks(disjoint.Deferred))
		}
		for _, failed := range disjoint.Failed {
			log.Warnf("%v", failed.Err)
		}
		failures = len(disjoint.Failed)
	} else {
		report.Transactions = env.series.Plan(ctx, env.manifest, roots, nil, opts.HonorOrdering)
		for _, planned := range report.Transactions {
			if planned.Err != nil {
				log.Warnf("%v", planned.Err)
				failures++
				continue
			}
			log.Infof("%s: [%s]", planned.Root.Link(), entities.ChangeLinks(planned.Transaction.Changes))
		}
	}

	if opts.DependMap {
		dependents, _ := env.series.DependMap(ctx, env.manifest, roots)
		report.Dependents = dependents
		for change, needers := range dependents {
			log.Infof("%s is needed by %s", change.Link(), entities.ChangeLinks(needers))
		}
	}

	if failures > 0 {
		return report, fmt.Errorf("%d change(s) could not be planned", failures)
	}
	return report, nil
}
