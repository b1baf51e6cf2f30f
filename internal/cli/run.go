package cli

import (
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/orchestrator"
	"github.com/julianstephens/autoblock/internal/storage"
)

// RunCmd is what the periodic invocation calls.
type RunCmd struct{}

func (cmd *RunCmd) Run(ctx *Context) error {
	if err := requireRoot(); err != nil {
		return err
	}

	set, err := ctx.RunConfig().Load()
	if err != nil {
		return err
	}

	eng, err := ctx.ProbeEngine(ctx.context(), set)
	if err != nil {
		return err
	}

	orch := &orchestrator.Orchestrator{
		Engine:   eng,
		StateDir: ctx.StateDir,
		Now:      ctx.Now,
		Logger:   ctx.Logger,
	}
	if hist := ctx.historyOrNil(); hist != nil {
		defer hist.Close()
		orch.History = hist
	}

	res, err := orch.Run(ctx.context(), set, orchestrator.ModeRun)
	if err != nil {
		return err
	}
	if res.Outcome == models.OutcomeStarted {
		ctx.printf("%s block started, ends %s\n", okStyle.Render("✓"), res.Match.End.Format("Mon 15:04"))
	} else {
		ctx.println(mutedStyle.Render("No schedule is active right now."))
	}
	return nil
}

// historyOrNil opens the history store, logging instead of failing. Runs
// must not be blocked by a broken history database.
func (c *Context) historyOrNil() storage.HistoryStore {
	hist, err := c.OpenHistory()
	if err != nil {
		c.log().Warn("run history unavailable", "error", err)
		return nil
	}
	return hist
}
