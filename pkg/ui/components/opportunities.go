// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow is one candidate in the list.
type OpportunityRow struct {
	ID         string
	Time       string
	Pair       string
	Route      string
	GrossPct   decimal.Decimal
	NetPct     decimal.Decimal
	ProfitUSD  decimal.Decimal
	Dispatched bool
}

// OpportunitiesComponent renders the newest candidates first.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	offset  int
	visible int
}

// NewOpportunitiesComponent creates a list holding at most maxRows entries.
func NewOpportunitiesComponent(maxRows int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0),
		maxRows: maxRows,
		visible: 10,
	}
}

// Add prepends row, replacing an older row with the same ID.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	for i, r := range o.rows {
		if r.ID == row.ID {
			o.rows = append(o.rows[:i], o.rows[i+1:]...)
			break
		}
	}
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
}

// MarkDispatched flags the row with id as sent to the executor.
func (o *OpportunitiesComponent) MarkDispatched(id string) {
	for i := range o.rows {
		if o.rows[i].ID == id {
			o.rows[i].Dispatched = true
			return
		}
	}
}

// Len is the number of rows held.
func (o *OpportunitiesComponent) Len() int {
	return len(o.rows)
}

// Clear removes all rows.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// ScrollUp moves the window one row towards the newest entry.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown moves the window one row towards older entries.
func (o *OpportunitiesComponent) ScrollDown() {
	if o.offset < len(o.rows)-o.visible {
		o.offset++
	}
}

// View renders the list.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	profitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if len(o.rows) == 0 {
		return headerStyle.Render("OPPORTUNITIES") + "\n\n" + dimStyle.Render("  No opportunities detected yet...")
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("OPPORTUNITIES (%d)", len(o.rows))))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("  %-8s  %-12s  %-24s  %7s  %7s  %10s\n", "Time", "Pair", "Buy > Sell", "Gross", "Net", "Profit"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 76)) + "\n")

	end := o.offset + o.visible
	if end > len(o.rows) {
		end = len(o.rows)
	}
	for _, row := range o.rows[o.offset:end] {
		marker := " "
		if row.Dispatched {
			marker = "»"
		}
		sb.WriteString(fmt.Sprintf("%s %-8s  %-12s  %-24s  %6s%%  %6s%%  %s\n",
			marker,
			row.Time,
			row.Pair,
			row.Route,
			row.GrossPct.StringFixed(2),
			row.NetPct.StringFixed(2),
			profitStyle.Render(fmt.Sprintf("%10s", "$"+row.ProfitUSD.StringFixed(2))),
		))
	}
	return sb.String()
}
