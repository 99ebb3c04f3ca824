//go:build unit

package controllers_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/infrastructure/controllers"
	commanddoubles "github.com/rios0rios0/patchseries/test/domain/commanddoubles"
)

const minimalConfig = `
remotes:
  external:
    type: gerrit
    host: chromium-review.googlesource.com
`

// newCobraCommand mirrors the persistent flags the root command defines.
func newCobraCommand(t *testing.T, configPath string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", configPath, "")
	cmd.Flags().Bool("dry-run", false, "")
	cmd.Flags().Bool("verbose", false, "")
	return cmd
}

func writeMinimalConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patchseries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig), 0o600))
	return path
}

func TestApplyController(t *testing.T) {
	t.Parallel()

	t.Run("should describe the apply subcommand", func(t *testing.T) {
		t.Parallel()

		// given
		controller := controllers.NewApplyController(&commanddoubles.StubApplyCommand{}, entities.NewSettingsLoader())

		// when
		bind := controller.GetBind()

		// then
		assert.Equal(t, "apply <change>...", bind.Use)
		assert.NotEmpty(t, bind.Short)
	})

	t.Run("should pass the changes and flags to the command", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubApplyCommand{}
		controller := controllers.NewApplyController(stub, entities.NewSettingsLoader())
		cmd := newCobraCommand(t, writeMinimalConfig(t))
		controller.AddFlags(cmd)
		require.NoError(t, cmd.Flags().Set("frozen", "true"))
		require.NoError(t, cmd.Flags().Set("dry-run", "true"))

		// when
		controller.Execute(cmd, []string{"1234", "*5678"})

		// then
		require.Equal(t, 1, stub.ExecuteCallCount)
		assert.Equal(t, []string{"1234", "*5678"}, stub.LastOpts.Changes)
		assert.True(t, stub.LastOpts.Frozen)
		assert.True(t, stub.LastOpts.DryRun)
		assert.False(t, stub.LastOpts.HonorOrdering)
		assert.Equal(t, "chromium-review.googlesource.com", stub.LastSettings.Remotes["external"].Host)
	})

	t.Run("should not run without changes", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubApplyCommand{}
		controller := controllers.NewApplyController(stub, entities.NewSettingsLoader())
		cmd := newCobraCommand(t, writeMinimalConfig(t))
		controller.AddFlags(cmd)

		// when
		controller.Execute(cmd, nil)

		// then
		assert.Equal(t, 0, stub.ExecuteCallCount)
	})

	t.Run("should not run with an invalid config", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubApplyCommand{}
		controller := controllers.NewApplyController(stub, entities.NewSettingsLoader())
		cmd := newCobraCommand(t, filepath.Join(t.TempDir(), "missing.yaml"))
		controller.AddFlags(cmd)

		// when
		controller.Execute(cmd, []string{"1"})

		// then
		assert.Equal(t, 0, stub.ExecuteCallCount)
	})
}

func TestPlanController(t *testing.T) {
	t.Parallel()

	t.Run("should describe the plan subcommand", func(t *testing.T) {
		t.Parallel()

		// given
		controller := controllers.NewPlanController(&commanddoubles.StubPlanCommand{}, entities.NewSettingsLoader())

		// when
		bind := controller.GetBind()

		// then
		assert.NotEmpty(t, bind.Use)
		assert.NotEmpty(t, bind.Short)
	})

	t.Run("should pass the changes and flags to the command", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubPlanCommand{}
		controller := controllers.NewPlanController(stub, entities.NewSettingsLoader())
		cmd := newCobraCommand(t, writeMinimalConfig(t))
		controller.AddFlags(cmd)
		require.NoError(t, cmd.Flags().Set("disjoint", "true"))
		require.NoError(t, cmd.Flags().Set("max-length", "5"))
		require.NoError(t, cmd.Flags().Set("depend-map", "true"))

		// when
		controller.Execute(cmd, []string{"1"})

		// then
		require.Equal(t, 1, stub.ExecuteCallCount)
		assert.True(t, stub.LastOpts.Disjoint)
		assert.Equal(t, 5, stub.LastOpts.MaxLength)
		assert.True(t, stub.LastOpts.DependMap)
	})
}

func TestNewControllers(t *testing.T) {
	t.Parallel()

	t.Run("should expose apply and plan", func(t *testing.T) {
		t.Parallel()

		// given
		apply := controllers.NewApplyController(&commanddoubles.StubApplyCommand{}, entities.NewSettingsLoader())
		plan := controllers.NewPlanController(&commanddoubles.StubPlanCommand{}, entities.NewSettingsLoader())

		// when
		all := controllers.NewControllers(apply, plan)

		// then
		assert.Len(t, *all, 2)
	})
}
