package entities

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
)

// SettingsLoader resolves which settings file a run uses and reads it.
type SettingsLoader struct {
	find func() (string, error)
}

// NewSettingsLoader creates a loader falling back to FindConfigFile.
func NewSettingsLoader() *SettingsLoader {
	return &SettingsLoader{find: FindConfigFile}
}

// Load reads the settings at path, or at the first default location holding
// a settings file when path is empty.
func (it *SettingsLoader) Load(path string) (*Settings, error) {
	if path == "" {
		found, err := it.find()
		if err != nil {
			return nil, fmt.Errorf(
				"no config file found: %w\nSpecify one with --config or create patchseries.yaml", err,
			)
		}
		path = found
	}

	logger.Infof("Using config file: %s", path)

	settings, err := NewSettings(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return settings, nil
}
