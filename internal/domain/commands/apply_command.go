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

// Apply is the interface for the apply command.
type Apply interface {
	Execute(ctx context.Context, settings *entities.Settings, opts ApplyOptions) (*series.ApplyResult, error)
}

// ApplyOptions holds runtime options for a single apply run.
type ApplyOptions struct {
	Changes       []string // references as accepted by ParsePatchDep, e.g. 1234 or *5678
	DryRun        bool
	Verbose       bool
	Frozen        bool // refuse dependencies that are not among Changes
	HonorOrdering bool // apply in the given order instead of longest transaction first
}

// ApplyCommand lands changes together with their dependencies:
// look up -> fetch -> plan -> apply transaction by transaction.
type ApplyCommand struct {
	reviewRegistry *infraRepos.ReviewRegistry
	gitFactory     infraRepos.GitRepositoryFactory
}

// NewApplyCommand creates a new ApplyCommand.
func NewApplyCommand(
	reviewRegistry *infraRepos.ReviewRegistry,
	gitFactory infraRepos.GitRepositoryFactory,
) *ApplyCommand {
	return &ApplyCommand{
		reviewRegistry: reviewRegistry,
		gitFactory:     gitFactory,
	}
}

// Execute applies the requested changes. Failed transactions are rolled back
// and reported in the result; the returned error is set when any failed.
func (it *ApplyCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts ApplyOptions,
) (*series.ApplyResult, error) {
	if opts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}
	log := logger.WithField("run_id", uuid.NewString())

	env, err := newRunEnvironment(it.reviewRegistry, it.gitFactory, settings, log)
	if err != nil {
		return nil, err
	}
	defer env.writeMetrics(settings.MetricsFile)
	log.Debugf("Working copies: %v", env.manifest.Paths())

	roots, err := env.resolveRoots(ctx, opts.Changes)
	if err != nil {
		return nil, err
	}
	log.Infof("Applying %d change(s): %s", len(roots), entities.ChangeLinks(roots))

	if opts.DryRun {
		var limit *entities.PatchCache
		if opts.Frozen {
			limit = entities.NewPatchCache(roots...)
		}
		for _, planned := range env.series.Plan(ctx, env.manifest, roots, limit, opts.HonorOrdering) {
			if planned.Err != nil {
				log.Warnf("[DRY RUN] %v", planned.Err)
				continue
			}
			log.Infof("[DRY RUN] Would apply %s as [%s]",
				planned.Root.Link(), entities.ChangeLinks(planned.Transaction.Changes))
		}
		return &series.ApplyResult{}, nil
	}

	result, err := env.series.Apply(ctx, env.manifest, roots, series.ApplyOptions{
		Frozen:        opts.Frozen,
		HonorOrdering: opts.HonorOrdering,
	})
	if err != nil {
		return &result, err
	}

	for _, failure := range result.FailedToT {
		log.Errorf("%v", failure)
	}
	for _, failure := range result.FailedInflight {
		log.Warnf("%v", failure)
	}
	log.Infof(
		"Apply complete: %d change(s) applied, %d failed against ToT, %d failed in flight",
		len(result.Applied), len(result.FailedToT), len(result.FailedInflight),
	)

	if failed := len(result.FailedToT) + len(result.FailedInflight); failed > 0 {
		return &result, fmt.Errorf("%d transaction(s) could not be applied", failed)
	}
	return &result, nil
}
