package reporter

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

// Sender accepts Bubble Tea messages. *ui.Dashboard implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// TUI forwards hub events to the dashboard.
type TUI struct {
	hub    *app.Hub
	target Sender
	sub    subscription
}

// NewTUI creates a TUI reporter.
func NewTUI(hub *app.Hub, target Sender) *TUI {
	return &TUI{hub: hub, target: target}
}

// Start subscribes to the hub.
func (t *TUI) Start(ctx context.Context) error {
	t.sub.start(ctx, t.hub, t.Handle)
	return nil
}

// Stop unsubscribes.
func (t *TUI) Stop() error {
	t.sub.stop()
	return nil
}

// Handle forwards one event.
func (t *TUI) Handle(ev domain.Event) {
	t.target.Send(ui.EventMsg{Event: ev})
}

// ScannerState tells the dashboard whether the scanner runs.
func (t *TUI) ScannerState(running bool, mode string) {
	t.target.Send(ui.ScannerStateMsg{Running: running, Mode: mode})
}

// Error shows err in the dashboard's error panel.
func (t *TUI) Error(err error) {
	t.target.Send(ui.ErrorMsg{Error: err})
}
