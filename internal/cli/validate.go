package cli

import (
	"github.com/julianstephens/autoblock/internal/validation"
)

type ValidateCmd struct {
	SkipSystem bool `help:"Skip the user account and engine path checks."`
}

func (cmd *ValidateCmd) Run(ctx *Context) error {
	set, err := ctx.LoadConfig()
	if err != nil {
		return err
	}

	validator := validation.New()
	validator.SkipSystemChecks = cmd.SkipSystem

	ctx.println("Validating schedules...")
	result := validator.Validate(set)

	ctx.println()
	ctx.println(result.FormatReport())

	return result.Err()
}
