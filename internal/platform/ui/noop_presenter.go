// internal/platform/ui/noop_presenter.go
package ui

import (
	"context"

	"proxylens/internal/core/ports"
)

// NoopPresenter es una implementación vacía del Presenter
// que no produce ninguna salida. Se usa con --json y en modo quiet.
type NoopPresenter struct{}

// NewNoopPresenter crea una instancia del presenter sin salida
func NewNoopPresenter() *NoopPresenter {
	return &NoopPresenter{}
}

// Notify descarta el evento
func (n *NoopPresenter) Notify(context.Context, ports.Event) error { return nil }

// Start no hace nada
func (n *NoopPresenter) Start(RunInfo) {}

// Info no hace nada
func (n *NoopPresenter) Info(string) {}

// Warning no hace nada
func (n *NoopPresenter) Warning(string) {}

// Error no hace nada
func (n *NoopPresenter) Error(string) {}

// Finish no hace nada
func (n *NoopPresenter) Finish(RunStats) {}

// Close no hace nada
func (n *NoopPresenter) Close() error { return nil }
