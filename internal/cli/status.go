package cli

import (
	"fmt"

	apperrors "github.com/julianstephens/autoblock/internal/errors"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/scheduler"
	"github.com/julianstephens/autoblock/internal/utils"
)

// StatusCmd shows the active window, its end, the next start and whether a
// block is running.
type StatusCmd struct {
	Offline bool `help:"Do not query the engine."`
}

func (cmd *StatusCmd) Run(ctx *Context) error {
	set, source, err := ctx.statusConfig()
	if err != nil {
		return err
	}

	loc, err := utils.LoadLocation(set.Timezone)
	if err != nil {
		return apperrors.Configf("invalid timezone %q: %v", set.Timezone, err)
	}
	now := ctx.now().In(loc)

	ctx.println(headingStyle.Render("autoblock status"))
	ctx.field("Config", source)
	ctx.field("Now", now.Format("Mon 2006-01-02 15:04 MST"))

	match := scheduler.FindActiveWindow(set, now)
	if match.Found {
		ctx.field("Active", okStyle.Render(fmt.Sprintf("schedule #%d (%s)", match.Index+1, describeWindow(match.Window))))
		ctx.field("Ends", scheduler.FormatEndTimestamp(match.End))
	} else {
		ctx.field("Active", mutedStyle.Render("none"))
	}

	next, ok, err := scheduler.NextWindow(set, now)
	if err != nil {
		return err
	}
	if ok {
		ctx.field("Next start", fmt.Sprintf("%s (schedule #%d)", next.Start.Format("Mon 2006-01-02 15:04"), next.Index+1))
	}

	if !cmd.Offline {
		ctx.field("Running", ctx.runningState(set))
	}

	if registrar, err := ctx.Registrar(); err == nil {
		installed := mutedStyle.Render("no")
		if registrar.Installed() {
			installed = okStyle.Render("yes")
		}
		ctx.field("Installed", fmt.Sprintf("%s (%s)", installed, registrar.Name()))
	} else {
		ctx.field("Installed", mutedStyle.Render(err.Error()))
	}
	return nil
}

// statusConfig prefers the installed run config over the user config.
func (c *Context) statusConfig() (models.ScheduleSet, string, error) {
	store := c.RunConfig()
	if store.Exists() {
		set, err := store.Load()
		return set, store.Path(), err
	}
	set, err := c.LoadConfig()
	return set, "user config (not installed)", err
}

func (c *Context) runningState(set models.ScheduleSet) string {
	eng, err := c.ProbeEngine(c.context(), set)
	if err != nil {
		return warnStyle.Render("unknown: " + err.Error())
	}
	running, err := eng.IsRunning(c.context())
	if err != nil {
		return warnStyle.Render("unknown: " + err.Error())
	}
	if running {
		return okStyle.Render("yes") + mutedStyle.Render(" ("+eng.Name()+")")
	}
	return "no" + mutedStyle.Render(" ("+eng.Name()+")")
}

func describeWindow(w models.ScheduleWindow) string {
	day := "every day"
	if w.Weekday != nil {
		day = utils.ISOWeekdayName(*w.Weekday)
	}
	return fmt.Sprintf("%s %s-%s", day,
		utils.FormatClock(w.StartHour, w.StartMinute),
		utils.FormatClock(w.EndHour, w.EndMinute))
}
