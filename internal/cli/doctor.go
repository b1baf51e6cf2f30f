package cli

import (
	"fmt"
	"time"

	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/utils"
	"github.com/julianstephens/autoblock/internal/validation"
)

type DoctorCmd struct{}

type checkLevel int

const (
	checkFail checkLevel = iota
	checkWarn
)

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	report := func(name string, level checkLevel, err error) {
		switch {
		case err == nil:
			ctx.printf("%s %s: OK\n", okStyle.Render("✓"), name)
		case level == checkWarn:
			ctx.printf("%s %s: WARNING\n", warnStyle.Render("⚠"), name)
			ctx.printf("   %v\n", err)
		default:
			ctx.printf("%s %s: FAIL\n", failStyle.Render("❌"), name)
			ctx.printf("   Error: %v\n", err)
			hasError = true
		}
	}

	set, err := ctx.LoadConfig()
	report("Config readable", checkFail, err)
	configOK := err == nil

	if configOK {
		report("Config valid", checkFail, checkConfigValid(set))
		desc, err := checkEngine(ctx, set)
		report("Engine reachable", checkFail, err)
		if err == nil {
			ctx.println("   " + mutedStyle.Render(desc))
		}
	} else {
		ctx.printf("%s Config valid: SKIPPED (config not readable)\n", mutedStyle.Render("⊘"))
		ctx.printf("%s Engine reachable: SKIPPED (config not readable)\n", mutedStyle.Render("⊘"))
	}

	report("Run config installed", checkWarn, checkRunConfig(ctx))
	report("History database", checkFail, checkHistory(ctx))
	report("Backups present", checkWarn, checkBackupsPresent(ctx))
	report("Periodic run registered", checkWarn, checkRegistered(ctx))
	report("Clock/timezone", checkFail, checkClockTimezone(ctx, set.Timezone))

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.println("All diagnostics passed!")
	return nil
}

func checkConfigValid(set models.ScheduleSet) error {
	result := validation.New().Validate(set)
	return result.Err()
}

// checkEngine probes the engine and describes the selected strategy.
func checkEngine(ctx *Context, set models.ScheduleSet) (string, error) {
	eng, err := ctx.ProbeEngine(ctx.context(), set)
	if err != nil {
		return "", err
	}
	desc := eng.Name() + " strategy"
	if v := eng.Version(); v != nil {
		desc += ", version " + v.String()
	}
	caps := eng.Capabilities()
	desc += fmt.Sprintf("; running check: %s, end timestamp: %s", yesNo(caps.StatusQuery), yesNo(caps.TimestampStop))
	return desc, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func checkRunConfig(ctx *Context) error {
	store := ctx.RunConfig()
	if !store.Exists() {
		return fmt.Errorf("no run config at %s - run 'sudo autoblock install'", store.Path())
	}
	_, err := store.Load()
	return err
}

func checkHistory(ctx *Context) error {
	hist, err := ctx.OpenHistory()
	if err != nil {
		return err
	}
	defer hist.Close()

	current, latest, err := hist.SchemaVersion()
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	backups, err := ctx.Backups().ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - one is taken on every reinstall")
	}
	return nil
}

func checkRegistered(ctx *Context) error {
	registrar, err := ctx.Registrar()
	if err != nil {
		return err
	}
	if !registrar.Installed() {
		return fmt.Errorf("no %s job found", registrar.Name())
	}
	return nil
}

func checkClockTimezone(ctx *Context, timezone string) error {
	loc, err := utils.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	now := ctx.now().In(loc)
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}

	if now.Location() == time.UTC {
		ctx.printf("   %s\n", mutedStyle.Render("Note: schedules are evaluated in UTC"))
	}
	return nil
}
