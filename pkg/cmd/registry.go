// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/hkcm91/stickernest/pkg/registry"
)

// NewRegistry builds the widget definition registry, loading every manifest
// found under widgetsPath. A missing or empty directory is fatal: routing
// without definitions cannot validate anything.
func NewRegistry(logger *slog.Logger, widgetsPath string) *registry.Registry {
	reg := registry.NewRegistry(logger)

	if widgetsPath != "" {
		if err := reg.LoadManifests(widgetsPath); err != nil {
			panic(err)
		}
	}

	return reg
}
