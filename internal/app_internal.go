package internal

import (
	"github.com/rios0rios0/patchseries/internal/domain/entities"
)

// AppInternal holds everything the CLI needs once the container is built.
type AppInternal struct {
	controllers []entities.Controller
}

// NewAppInternal creates the AppInternal from the registered controllers.
func NewAppInternal(controllers *[]entities.Controller) *AppInternal {
	return &AppInternal{controllers: *controllers}
}

// GetControllers returns the controllers to expose as subcommands.
func (it *AppInternal) GetControllers() []entities.Controller {
	return it.controllers
}
