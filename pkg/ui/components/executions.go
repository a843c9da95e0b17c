package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// ExecutionRow is one recorded execution attempt.
type ExecutionRow struct {
	Time       string
	Pair       string
	Mode       string
	Status     string
	ProfitUSD  decimal.Decimal
	TxHash     string
	FailedStep string
	ErrorCode  string
}

// ExecutionsComponent renders recent execution results.
type ExecutionsComponent struct {
	rows    []ExecutionRow
	maxRows int
}

// NewExecutionsComponent creates a list holding at most maxRows results.
func NewExecutionsComponent(maxRows int) *ExecutionsComponent {
	return &ExecutionsComponent{maxRows: maxRows}
}

// Add prepends row.
func (e *ExecutionsComponent) Add(row ExecutionRow) {
	e.rows = append([]ExecutionRow{row}, e.rows...)
	if len(e.rows) > e.maxRows {
		e.rows = e.rows[:e.maxRows]
	}
}

// Len is the number of rows held.
func (e *ExecutionsComponent) Len() int {
	return len(e.rows)
}

// View renders the list.
func (e *ExecutionsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("EXECUTIONS"))
	sb.WriteString("\n\n")

	if len(e.rows) == 0 {
		sb.WriteString(dimStyle.Render("  No executions yet..."))
		return sb.String()
	}

	for _, row := range e.rows {
		style := dimStyle
		switch row.Status {
		case "simulated", "pending":
			style = okStyle
		case "skipped":
			style = warnStyle
		case "failed":
			style = failStyle
		}

		detail := shortHash(row.TxHash)
		if row.ErrorCode != "" {
			detail = fmt.Sprintf("step %s %s", row.FailedStep, row.ErrorCode)
		}
		sb.WriteString(fmt.Sprintf("  %-8s  %-12s  %-10s  %s  %9s  %s\n",
			row.Time,
			row.Pair,
			row.Mode,
			style.Render(fmt.Sprintf("%-9s", row.Status)),
			"$"+row.ProfitUSD.StringFixed(2),
			dimStyle.Render(detail),
		))
	}
	return sb.String()
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "…" + h[len(h)-4:]
}
