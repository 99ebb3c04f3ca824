package main

import (
	"fmt"

	"go.uber.org/dig"

	"github.com/rios0rios0/patchseries/internal"
)

// injectAppContext builds the application graph, layer by layer.
func injectAppContext() (*internal.AppInternal, error) {
	container := dig.New()
	if err := internal.RegisterProviders(container); err != nil {
		return nil, fmt.Errorf("failed to register providers: %w", err)
	}

	var appInternal *internal.AppInternal
	if err := container.Invoke(func(app *internal.AppInternal) {
		appInternal = app
	}); err != nil {
		return nil, fmt.Errorf("failed to build the application: %w", err)
	}
	return appInternal, nil
}
