package reporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

// Console prints one table per scan cycle with the candidates it found,
// plus a line per execution result.
type Console struct {
	out  io.Writer
	hub  *app.Hub
	sub  subscription
	mu   sync.Mutex
	seen []domain.Opportunity
}

// NewConsole creates a console reporter writing to stdout.
func NewConsole(hub *app.Hub) *Console {
	return NewConsoleWriter(os.Stdout, hub)
}

// NewConsoleWriter creates a console reporter writing to w.
func NewConsoleWriter(w io.Writer, hub *app.Hub) *Console {
	return &Console{out: w, hub: hub}
}

// Start subscribes to the hub.
func (c *Console) Start(ctx context.Context) error {
	fmt.Fprintln(c.out, "Flash-Loan Arbitrage Scanner Started")
	fmt.Fprintln(c.out, "====================================")
	c.sub.start(ctx, c.hub, c.Handle)
	return nil
}

// Stop unsubscribes and waits for pending output.
func (c *Console) Stop() error {
	c.sub.stop()
	fmt.Fprintln(c.out, "")
	fmt.Fprintln(c.out, "Flash-Loan Arbitrage Scanner Stopped")
	return nil
}

// Handle renders one event.
func (c *Console) Handle(ev domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case domain.EventOpportunityFound:
		if ev.Opportunity != nil {
			c.seen = append(c.seen, *ev.Opportunity)
		}
	case domain.EventScanCycleCompleted:
		if ev.Cycle != nil {
			c.printCycle(*ev.Cycle)
		}
		c.seen = c.seen[:0]
	case domain.EventTradeExecuted:
		if ev.Result != nil {
			c.printResult(*ev.Result)
		}
	}
}

func (c *Console) printCycle(r domain.CycleReport) {
	at := r.StartedAt.Format("15:04:05")
	if r.Skipped {
		fmt.Fprintf(c.out, "[%s] cycle %d skipped (%s) gas %s gwei\n", at, r.Cycle, r.SkipReason, r.GasGwei.StringFixed(1))
		return
	}

	fmt.Fprintf(c.out, "[%s] cycle %d: %d/%d quotes, %d evaluated, %d opportunities, %d dispatched (%s)\n",
		at, r.Cycle, r.QuotesSucceeded, r.QuotesRequested, r.Evaluated, r.Opportunities, r.Dispatched,
		r.Duration.Round(time.Millisecond))
	if len(c.seen) == 0 {
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Pair", "Buy", "Sell", "Gross %", "Net %", "Gas $", "Fee $", "Profit $")
	for i, o := range c.seen {
		table.Append(
			fmt.Sprintf("%d", i+1),
			o.Pair.Key(),
			o.BuyVenue,
			o.SellVenue,
			o.GrossProfitPercent.StringFixed(3),
			o.NetProfitPercent().StringFixed(3),
			o.GasCostUSD.StringFixed(2),
			o.FlashLoanFeeUSD.StringFixed(2),
			o.EstimatedProfitUSD().StringFixed(2),
		)
	}
	table.Render()
}

func (c *Console) printResult(r domain.TradeExecutionResult) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] execution %s %s %s", r.CreatedAt.Format("15:04:05"), r.Pair, strings.ToUpper(r.Mode), r.Status)
	if r.TxHash != "" {
		fmt.Fprintf(&sb, " tx %s", r.TxHash)
	}
	if r.Success {
		fmt.Fprintf(&sb, " est. profit $%s", r.ProfitUSD.StringFixed(2))
	}
	if r.ErrorCode != "" {
		fmt.Fprintf(&sb, " step %s %s", r.FailedStep, r.ErrorCode)
		if r.Hint != "" {
			fmt.Fprintf(&sb, " (hint: %s)", r.Hint)
		}
	}
	fmt.Fprintln(c.out, sb.String())
}
