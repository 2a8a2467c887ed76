// Package report implements ports.Notifier as a console reporter, the
// rebalancer-facing twin of the teacher's notify.Console.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

// Console implements ports.Notifier, printing a per-cycle summary of scored
// opportunities. Two modes mirror the teacher's compact/full split: a
// one-line summary by default, or a full table when Table is set.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a reporter writing to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a reporter writing to w, for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify implements ports.Notifier.
func (c *Console) Notify(_ context.Context, scored []domain.ScoredOpportunity) error {
	if len(scored) == 0 {
		fmt.Fprintf(c.out, "[%s] no rebalancing opportunities found\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(scored)
	} else {
		c.printCompact(scored)
	}
	return nil
}

func (c *Console) printCompact(scored []domain.ScoredOpportunity) {
	now := time.Now().Format("15:04:05")
	feasible := countFeasible(scored)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d opportunities, %d feasible", now, len(scored), feasible)

	shown := 0
	for _, s := range scored {
		if shown >= 4 {
			break
		}
		if !s.Feasible {
			continue
		}
		opp := s.Opportunity
		fmt.Fprintf(&sb, " | %s %s score:%.2f amt:%s",
			opp.Kind, routeLabel(opp), s.Score, opp.Amount.Dec())
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

func (c *Console) printFull(scored []domain.ScoredOpportunity) {
	now := time.Now().Format("15:04:05")
	feasible := countFeasible(scored)
	fmt.Fprintf(c.out, "\n[%s] %d opportunities — %d feasible\n", now, len(scored), feasible)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Kind", "Route", "Amount", "Score", "Feasible", "Reasons")

	for i, s := range scored {
		opp := s.Opportunity
		feasibleLabel := "yes"
		if !s.Feasible {
			feasibleLabel = "no"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			opp.Kind.String(),
			routeLabel(opp),
			opp.Amount.Dec(),
			fmt.Sprintf("%.4f", s.Score),
			feasibleLabel,
			strings.Join(s.Reasons, "; "),
		)
	}
	table.Render()
}

func routeLabel(opp domain.Opportunity) string {
	if opp.From != "" {
		return fmt.Sprintf("%s -> %s", opp.From, opp.To)
	}
	return string(opp.To)
}

func countFeasible(scored []domain.ScoredOpportunity) int {
	n := 0
	for _, s := range scored {
		if s.Feasible {
			n++
		}
	}
	return n
}
