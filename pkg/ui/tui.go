// Package ui provides the Bubble Tea dashboard for the flash-loan scanner.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

const (
	maxErrors   = 3
	maxActivity = 6
)

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Option configures a Model.
type Option func(*Model)

// WithOnStart sets the callback run once the welcome screen is done.
func WithOnStart(fn func()) Option {
	return func(m *Model) { m.onStart = fn }
}

// WithOnToggleScanner sets the callback bound to the scanner key.
func WithOnToggleScanner(fn func()) Option {
	return func(m *Model) { m.onToggle = fn }
}

// WithMode shows the executor mode in the header.
func WithMode(mode string) Option {
	return func(m *Model) { m.mode = mode }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	keys KeyMap
	help help.Model

	status        *components.StatusComponent
	opportunities *components.OpportunitiesComponent
	executions    *components.ExecutionsComponent
	stats         *components.StatsComponent

	phase        Phase
	welcomeStart time.Time
	mode         string

	ready    bool
	quitting bool
	paused   bool
	width    int
	height   int

	errors       []ErrorEntry
	activityFeed []string

	onStart  func()
	onToggle func()
	now      func() time.Time
}

// New creates a new TUI model.
func New(opts ...Option) Model {
	m := Model{
		keys:          DefaultKeyMap(),
		help:          help.New(),
		status:        components.NewStatusComponent(),
		opportunities: components.NewOpportunitiesComponent(50),
		executions:    components.NewExecutionsComponent(8),
		stats:         components.NewStatsComponent(),
		phase:         PhaseWelcome,
		errors:        make([]ErrorEntry, 0, maxErrors),
		activityFeed:  make([]string, 0, maxActivity),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.welcomeStart = m.now()
	m.status.Update(components.ScannerStatus{Mode: m.mode})
	return m
}

// Init starts the tick loop.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.enterDashboard()
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Scanner):
			if m.onToggle != nil {
				go m.onToggle()
			}
		case key.Matches(msg, m.keys.Up):
			m.opportunities.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.opportunities.ScrollDown()
		case key.Matches(msg, m.keys.Errors):
			m.errors = make([]ErrorEntry, 0, maxErrors)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && m.now().Sub(m.welcomeStart) >= WelcomeDuration {
			m.enterDashboard()
		}
		return m, tickCmd()

	case StartModulesMsg:
		if m.phase == PhaseWelcome {
			m.enterDashboard()
		}

	case ScannerStateMsg:
		st := m.status.Status()
		st.Running = msg.Running
		if msg.Mode != "" {
			m.mode = msg.Mode
			st.Mode = msg.Mode
		}
		m.status.Update(st)

	case EventMsg:
		m.handleEvent(msg.Event)

	case ErrorMsg:
		if msg.Error != nil {
			m.addError(msg.Error.Error())
		}
	}

	return m, nil
}

// enterDashboard leaves the welcome screen and fires the start callback.
func (m *Model) enterDashboard() {
	m.phase = PhaseDashboard
	if m.onStart != nil {
		go m.onStart()
	}
}

func (m *Model) handleEvent(ev domain.Event) {
	switch ev.Type {
	case domain.EventOpportunityFound:
		if ev.Opportunity == nil || m.paused {
			return
		}
		o := ev.Opportunity
		m.opportunities.Add(components.OpportunityRow{
			ID:        o.ID,
			Time:      o.DiscoveredAt.Format("15:04:05"),
			Pair:      o.Pair.Key(),
			Route:     o.BuyVenue + " > " + o.SellVenue,
			GrossPct:  o.GrossProfitPercent,
			NetPct:    o.NetProfitPercent(),
			ProfitUSD: o.EstimatedProfitUSD(),
		})
		m.addActivity(fmt.Sprintf("found %s buy %s sell %s net %s%%",
			o.Pair.Key(), o.BuyVenue, o.SellVenue, o.NetProfitPercent().StringFixed(3)))

	case domain.EventTradeExecuted:
		if ev.Result == nil {
			return
		}
		r := ev.Result
		m.opportunities.MarkDispatched(r.OpportunityID)
		m.executions.Add(components.ExecutionRow{
			Time:       r.CreatedAt.Format("15:04:05"),
			Pair:       r.Pair,
			Mode:       r.Mode,
			Status:     string(r.Status),
			ProfitUSD:  r.ProfitUSD,
			TxHash:     r.TxHash,
			FailedStep: r.FailedStep,
			ErrorCode:  r.ErrorCode,
		})

		s := m.stats.Stats()
		s.Executions++
		if r.Status == domain.StatusFailed {
			s.Failures++
			m.addError(fmt.Sprintf("%s step %s: %s", r.Pair, r.FailedStep, r.ErrorCode))
		}
		m.stats.Update(s)
		m.addActivity(fmt.Sprintf("execution %s %s", r.Pair, r.Status))

	case domain.EventScanCycleCompleted:
		if ev.Cycle == nil {
			return
		}
		c := ev.Cycle

		s := m.stats.Stats()
		s.Cycles = c.Cycle
		if c.Skipped {
			s.SkippedCycles++
		}
		s.QuotesSucceeded += int64(c.QuotesSucceeded)
		s.QuotesFailed += int64(c.QuotesFailed)
		s.Opportunities += int64(c.Opportunities)
		s.Dispatched += int64(c.Dispatched)
		s.LastCycleMs = c.Duration.Milliseconds()
		m.stats.Update(s)

		st := m.status.Status()
		st.GasGwei = c.GasGwei.StringFixed(1)
		st.SkipReason = c.SkipReason
		st.LastCycle = c.StartedAt
		m.status.Update(st)

		if c.Skipped {
			m.addActivity(fmt.Sprintf("cycle %d skipped: %s", c.Cycle, c.SkipReason))
		}
	}
}

func (m *Model) addError(message string) {
	m.errors = append(m.errors, ErrorEntry{Message: message, Timestamp: m.now()})
	if len(m.errors) > maxErrors {
		m.errors = m.errors[len(m.errors)-maxErrors:]
	}
}

func (m *Model) addActivity(message string) {
	line := fmt.Sprintf("[%s] %s", m.now().Format("15:04:05"), message)
	m.activityFeed = append(m.activityFeed, line)
	if len(m.activityFeed) > maxActivity {
		m.activityFeed = m.activityFeed[len(m.activityFeed)-maxActivity:]
	}
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}
	if m.phase == PhaseWelcome {
		return m.renderWelcomeScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Flash-Loan DEX Arbitrage "))
	b.WriteString(" ")
	b.WriteString(m.renderMode())
	b.WriteString("\n\n")
	b.WriteString(m.status.View(m.now()))
	b.WriteString("\n\n")

	leftCol := m.opportunities.View()

	var right strings.Builder
	right.WriteString(m.renderActivityFeed())
	right.WriteString("\n\n")
	right.WriteString(m.executions.View())
	rightCol := right.String()

	width := m.width
	if width == 0 {
		width = 120
	}
	if width > 100 {
		left := BoxStyle.Width(width/2 - 2).Render(leftCol)
		r := BoxStyle.Width(width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, r))
	} else {
		b.WriteString(BoxStyle.Width(width - 4).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width - 4).Render(rightCol))
	}
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(ErrorHeaderStyle.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := m.now().Sub(err.Timestamp).Round(time.Second)
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(PauseStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderMode() string {
	switch m.mode {
	case "real":
		return ModeRealStyle.Render("REAL")
	case "":
		return ""
	default:
		return ModeSimulationStyle.Render(strings.ToUpper(m.mode))
	}
}

func (m Model) renderActivityFeed() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	foundStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for the first scan cycle..."))
		return sb.String()
	}
	for _, line := range m.activityFeed {
		if strings.Contains(line, "] found ") {
			sb.WriteString(foundStyle.Render("  " + line))
		} else {
			sb.WriteString(MutedValue.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	greenStyle := lipgloss.NewStyle().Foreground(ColorSecondary)

	dots := strings.Repeat(".", int(m.now().Sub(m.welcomeStart).Milliseconds()/300)%4)

	logo := `
   ███████╗██╗      █████╗ ███████╗██╗  ██╗     █████╗ ██████╗ ██████╗
   ██╔════╝██║     ██╔══██╗██╔════╝██║  ██║    ██╔══██╗██╔══██╗██╔══██╗
   █████╗  ██║     ███████║███████╗███████║    ███████║██████╔╝██████╔╝
   ██╔══╝  ██║     ██╔══██║╚════██║██╔══██║    ██╔══██║██╔══██╗██╔══██╗
   ██║     ███████╗██║  ██║███████║██║  ██║    ██║  ██║██║  ██║██████╔╝
   ╚═╝     ╚══════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝    ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝
`
	var sb strings.Builder
	sb.WriteString("\n\n\n")
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("            F L A S H - L O A N   D E X   A R B I T R A G E"))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("                        Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("                 Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

// Dashboard owns a running Bubble Tea program.
type Dashboard struct {
	program *tea.Program
}

// NewDashboard creates the program around a new Model.
func NewDashboard(opts ...Option) *Dashboard {
	return &Dashboard{program: tea.NewProgram(New(opts...), tea.WithAltScreen())}
}

// Run blocks until the user quits or Quit is called.
func (d *Dashboard) Run() error {
	_, err := d.program.Run()
	return err
}

// Send forwards msg to the program. It blocks until the program reads it.
func (d *Dashboard) Send(msg tea.Msg) {
	d.program.Send(msg)
}

// Quit stops the program.
func (d *Dashboard) Quit() {
	d.program.Quit()
}
