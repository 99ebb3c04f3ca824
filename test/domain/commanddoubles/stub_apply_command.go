//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/patchseries/internal/domain/commands"
	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/series"
)

// StubApplyCommand is a stub implementation of commands.Apply.
type StubApplyCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	Result           *series.ApplyResult
	LastSettings     *entities.Settings
	LastOpts         commands.ApplyOptions
}

var _ commands.Apply = (*StubApplyCommand)(nil)

func (s *StubApplyCommand) Execute(
	_ context.Context,
	settings *entities.Settings,
	opts commands.ApplyOptions,
) (*series.ApplyResult, error) {
	s.ExecuteCallCount++
	s.LastSettings = settings
	s.LastOpts = opts
	return s.Result, s.ExecuteErr
}
