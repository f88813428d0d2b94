// Package handlers provides HTTP handlers for the journeyid server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"context"

	"github.com/nomis52/journeyid/activation"
	"github.com/nomis52/journeyid/config"
	"github.com/nomis52/journeyid/server/history"
)

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Reloader can reload its configuration.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Activator runs activations.
type Activator interface {
	Activate(ctx context.Context, req activation.Request) (*activation.Result, error)
}

// HistoryProvider provides access to finished activations.
type HistoryProvider interface {
	History() []history.Summary
	Get(id string) (history.Record, error)
}
