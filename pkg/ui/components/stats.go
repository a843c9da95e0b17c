package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds session counters for display.
type Stats struct {
	Cycles          uint64
	SkippedCycles   uint64
	QuotesSucceeded int64
	QuotesFailed    int64
	Opportunities   int64
	Dispatched      int64
	Executions      int64
	Failures        int64
	LastCycleMs     int64
}

// StatsComponent renders session counters.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update replaces the counters.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// Stats returns the current counters.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	quoteRate := float64(0)
	if total := s.stats.QuotesSucceeded + s.stats.QuotesFailed; total > 0 {
		quoteRate = float64(s.stats.QuotesSucceeded) / float64(total) * 100
	}

	failures := valueStyle.Render(fmt.Sprintf("%d", s.stats.Failures))
	if s.stats.Failures > 0 {
		failures = errorStyle.Render(fmt.Sprintf("%d", s.stats.Failures))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Cycles: %s (%d skipped)  │  Opportunities: %s  │  Dispatched: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Cycles)),
			s.stats.SkippedCycles,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Opportunities)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Dispatched)),
		) +
		fmt.Sprintf("Quote success: %s  │  Last cycle: %s  │  Executions: %s  │  Failures: %s",
			valueStyle.Render(fmt.Sprintf("%.1f%%", quoteRate)),
			valueStyle.Render(fmt.Sprintf("%dms", s.stats.LastCycleMs)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Executions)),
			failures,
		)
}
