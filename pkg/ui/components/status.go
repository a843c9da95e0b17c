package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ScannerStatus is the scanner state shown in the header.
type ScannerStatus struct {
	Running    bool
	Mode       string
	GasGwei    string
	SkipReason string
	LastCycle  time.Time
}

// StatusComponent renders the scanner status line.
type StatusComponent struct {
	status ScannerStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{}
}

// Update replaces the status.
func (s *StatusComponent) Update(status ScannerStatus) {
	s.status = status
}

// Status returns the current status.
func (s *StatusComponent) Status() ScannerStatus {
	return s.status
}

// View renders the status line relative to now.
func (s *StatusComponent) View(now time.Time) string {
	running := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	stopped := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	parts := make([]string, 0, 5)
	if s.status.Running {
		parts = append(parts, running.Render("● Scanning"))
	} else {
		parts = append(parts, stopped.Render("○ Stopped"))
	}
	if s.status.Mode != "" {
		parts = append(parts, "Mode: "+strings.ToUpper(s.status.Mode))
	}
	if s.status.GasGwei != "" {
		parts = append(parts, fmt.Sprintf("Gas: %s gwei", s.status.GasGwei))
	}
	if s.status.SkipReason != "" {
		parts = append(parts, warn.Render("Skipped: "+s.status.SkipReason))
	}
	if !s.status.LastCycle.IsZero() {
		ago := now.Sub(s.status.LastCycle).Round(time.Second)
		parts = append(parts, muted.Render(fmt.Sprintf("Last cycle: %s ago", ago)))
	}
	return strings.Join(parts, "  │  ")
}
