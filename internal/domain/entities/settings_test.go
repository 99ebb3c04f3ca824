//go:build unit

package entities_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewSettings(t *testing.T) {
	t.Run("should parse a YAML config applying defaults", func(t *testing.T) {
		// given
		path := writeConfig(t, "patchseries.yaml", `
build_root: /build
remotes:
  external:
    type: gerrit
    host: chromium-review.googlesource.com
checkouts:
  - project: chromiumos/chromite
    path: chromite
`)

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.DefaultMaxDepth, settings.MaxDepth)
		assert.Equal(t, entities.DefaultFetchWorkers, settings.FetchWorkers)
		assert.True(t, settings.Remotes["external"].IsEnabled())
		assert.Equal(t, "/build/chromite", settings.CheckoutPath(settings.Checkouts[0]))
	})

	t.Run("should parse a TOML config", func(t *testing.T) {
		// given
		path := writeConfig(t, "patchseries.toml", `
max_depth = 20
submitting = true

[remotes.internal]
type = "gerrit"
host = "chrome-internal-review.googlesource.com"

[[checkouts]]
project = "chromeos/overlays"
path = "/abs/overlays"
remote = "internal"
`)

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, 20, settings.MaxDepth)
		assert.True(t, settings.Submitting)
		assert.Equal(t, "/abs/overlays", settings.CheckoutPath(settings.Checkouts[0]))
	})

	t.Run("should expand environment variables and read token files", func(t *testing.T) {
		// given
		tokenFile := writeConfig(t, "token", "  s3cret\n")
		t.Setenv("PATCHSERIES_TEST_HOST", "review.example.com")
		t.Setenv("PATCHSERIES_TEST_TOKEN_FILE", tokenFile)
		path := writeConfig(t, "patchseries.yaml", `
remotes:
  external:
    type: gerrit
    host: ${PATCHSERIES_TEST_HOST}
    token: ${PATCHSERIES_TEST_TOKEN_FILE}
`)

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "review.example.com", settings.Remotes["external"].Host)
		assert.Equal(t, "s3cret", settings.Remotes["external"].Token)
	})

	t.Run("should reject invalid configurations", func(t *testing.T) {
		tests := map[string]string{
			"no remote":       "build_root: /build\n",
			"unknown remote":  "remotes:\n  partner:\n    type: gerrit\n    host: h\n",
			"missing host":    "remotes:\n  external:\n    type: gerrit\n",
			"all disabled":    "remotes:\n  external:\n    type: gerrit\n    host: h\n    enabled: false\n",
			"negative depth":  "max_depth: -1\nremotes:\n  external:\n    type: gerrit\n    host: h\n",
			"checkout path":   "remotes:\n  external:\n    type: gerrit\n    host: h\ncheckouts:\n  - project: p\n",
			"checkout remote": "remotes:\n  external:\n    type: gerrit\n    host: h\ncheckouts:\n  - project: p\n    path: p\n    remote: x\n",
		}
		for name, content := range tests {
			_, err := entities.NewSettings(writeConfig(t, "patchseries.yaml", content))
			assert.Error(t, err, name)
		}
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		// when
		_, err := entities.NewSettings(filepath.Join(t.TempDir(), "missing.yaml"))

		// then
		assert.Error(t, err)
	})
}
