package cli

import (
	"fmt"
	"strings"

	"github.com/julianstephens/autoblock/internal/models"
)

// HistoryCmd lists recent runs, newest first.
type HistoryCmd struct {
	Limit int `help:"Number of runs to show (0 for all)." default:"20"`
}

func (cmd *HistoryCmd) Run(ctx *Context) error {
	hist, err := ctx.OpenHistory()
	if err != nil {
		return err
	}
	defer hist.Close()

	records, err := hist.List(ctx.context(), cmd.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		ctx.println("No runs recorded yet.")
		return nil
	}

	for _, r := range records {
		ctx.println(formatRecord(r))
	}
	return nil
}

func formatRecord(r models.RunRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-8s %s", r.StartedAt, r.Mode, outcomeLabel(r.Outcome))
	if r.WindowIndex != nil {
		fmt.Fprintf(&b, "  schedule #%d", *r.WindowIndex+1)
	}
	if r.BlockEnd != nil {
		fmt.Fprintf(&b, "  until %s", *r.BlockEnd)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "\n    %s", mutedStyle.Render(r.Error))
	}
	return b.String()
}

func outcomeLabel(o models.RunOutcome) string {
	label := fmt.Sprintf("%-15s", o)
	switch o {
	case models.OutcomeStarted, models.OutcomeInstalled:
		return okStyle.Render(label)
	case models.OutcomeFailed:
		return failStyle.Render(label)
	case models.OutcomeAlreadyRunning:
		return warnStyle.Render(label)
	default:
		return mutedStyle.Render(label)
	}
}
