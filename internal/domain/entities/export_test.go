package entities

// NewSettingsLoaderWithFinder creates a loader looking for its file with find.
func NewSettingsLoaderWithFinder(find func() (string, error)) *SettingsLoader {
	return &SettingsLoader{find: find}
}
