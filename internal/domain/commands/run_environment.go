package commands

import (
	"context"
	"fmt"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/series"
	infraRepos "github.com/rios0rios0/patchseries/internal/infrastructure/repositories"
	gitRepo "github.com/rios0rios0/patchseries/internal/infrastructure/repositories/git"
	"github.com/rios0rios0/patchseries/internal/infrastructure/repositories/manifest"
	"github.com/rios0rios0/patchseries/internal/telemetry"
)

// runEnvironment is everything one invocation works with, built from the settings.
type runEnvironment struct {
	series   *series.Series
	manifest *manifest.ManifestRepository
	metrics  *telemetry.Metrics
	log      *logger.Entry
}

func newRunEnvironment(
	reviewRegistry *infraRepos.ReviewRegistry,
	gitFactory infraRepos.GitRepositoryFactory,
	settings *entities.Settings,
	log *logger.Entry,
) (*runEnvironment, error) {
	metrics := telemetry.NewMetrics()
	pool := series.NewHelperPool()

	names := make([]string, 0, len(settings.Remotes))
	for name := range settings.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)

	var credentials []gitRepo.Credential
	for _, name := range names {
		cfg := settings.Remotes[name]
		if !cfg.IsEnabled() {
			log.Infof("Remote %q is disabled, its changes will be skipped", name)
			continue
		}
		remote, err := entities.ParseRemote(name)
		if err != nil {
			return nil, err
		}
		helper, err := reviewRegistry.Get(remote, cfg)
		if err != nil {
			return nil, fmt.Errorf("remote %q: %w", name, err)
		}
		pool.Bind(remote, infraRepos.WrapReviewRepository(helper, metrics))
		credentials = append(credentials, gitRepo.Credential{
			Host:     cfg.Host,
			Username: cfg.Username,
			Token:    cfg.Token,
		})
		log.Debugf("Remote %q served by %s", name, helper.Host())
	}

	manifestRepo, err := manifest.NewManifestRepository(settings)
	if err != nil {
		return nil, err
	}

	return &runEnvironment{
		series: series.New(pool, gitFactory(credentials...), series.Options{
			MaxDepth:     settings.MaxDepth,
			Submitting:   settings.Submitting,
			FetchWorkers: settings.FetchWorkers,
		}, series.WithObserver(metrics)),
		manifest: manifestRepo,
		metrics:  metrics,
		log:      log,
	}, nil
}

// resolveRoots looks up the changes named on the command line.
func (e *runEnvironment) resolveRoots(ctx context.Context, refs []string) ([]*entities.Change, error) {
	roots := make([]*entities.Change, 0, len(refs))
	for _, ref := range refs {
		query, err := entities.ParsePatchDep(ref, entities.ParseOptions{})
		if err != nil {
			return nil, err
		}
		change, err := e.series.Lookup(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", ref, err)
		}
		if change == nil {
			return nil, fmt.Errorf("no change matches %s", ref)
		}
		if entities.IndexOf(roots, change) < 0 {
			roots = append(roots, change)
		}
	}
	return roots, nil
}

func (e *runEnvironment) writeMetrics(path string) {
	if path == "" {
		return
	}
	if err := e.metrics.WriteToTextfile(path); err != nil {
		e.log.Warnf("Failed to write metrics to %q: %v", path, err)
		return
	}
	e.log.Debugf("Metrics written to %q", path)
}
