package entities

import (
	"go.uber.org/dig"
)

// RegisterProviders registers the entity layer providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	return container.Provide(NewSettingsLoader)
}
