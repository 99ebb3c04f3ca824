//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/patchseries/internal/domain/commands"
	"github.com/rios0rios0/patchseries/internal/domain/entities"
)

// StubPlanCommand is a stub implementation of commands.Plan.
type StubPlanCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	Report           *commands.PlanReport
	LastSettings     *entities.Settings
	LastOpts         commands.PlanOptions
}

var _ commands.Plan = (*StubPlanCommand)(nil)

func (s *StubPlanCommand) Execute(
	_ context.Context,
	settings *entities.Settings,
	opts commands.PlanOptions,
) (*commands.PlanReport, error) {
	s.ExecuteCallCount++
	s.LastSettings = settings
	s.LastOpts = opts
	return s.Report, s.ExecuteErr
}
