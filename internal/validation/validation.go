package validation

import (
	stderrors "errors"
	"fmt"
	"os"
	"os/user"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/julianstephens/autoblock/internal/errors"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/utils"
)

var (
	lookupUserFunc = user.Lookup
	statFunc       = os.Stat
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictMissingField      ConflictType = "missing_field"
	ConflictInvalidValue      ConflictType = "invalid_value"
	ConflictUnknownUser       ConflictType = "unknown_user"
	ConflictEngineNotFound    ConflictType = "engine_not_found"
	ConflictNoSchedules       ConflictType = "no_schedules"
	ConflictInvalidTimezone   ConflictType = "invalid_timezone"
	ConflictOverlappingWindow ConflictType = "overlapping_windows"
	ConflictNoGlobalBlacklist ConflictType = "no_global_blacklist"
)

// Severity separates fatal conflicts from advisory ones.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Conflict represents a detected problem in a schedule configuration
type Conflict struct {
	Type        ConflictType
	Severity    Severity
	Description string
	Field       string // JSON path of the offending field (if applicable)
	Windows     []int  // indexes into block-schedules (if applicable)
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasErrors returns true if any conflict is fatal
func (vr *ValidationResult) HasErrors() bool {
	for _, c := range vr.Conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns only the advisory conflicts
func (vr *ValidationResult) Warnings() []Conflict {
	var out []Conflict
	for _, c := range vr.Conflicts {
		if c.Severity == SeverityWarning {
			out = append(out, c)
		}
	}
	return out
}

// Err returns a ConfigError listing every fatal conflict, or nil.
func (vr *ValidationResult) Err() error {
	var msgs []string
	for _, c := range vr.Conflicts {
		if c.Severity == SeverityError {
			msgs = append(msgs, c.Description)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return apperrors.Config(stderrors.New(strings.Join(msgs, "; ")))
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if len(vr.Conflicts) == 0 {
		return "Configuration is valid."
	}

	var b strings.Builder
	for _, c := range vr.Conflicts {
		prefix := "ERROR"
		if c.Severity == SeverityWarning {
			prefix = "WARNING"
		}
		fmt.Fprintf(&b, "- %s: %s\n", prefix, c.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Validator checks schedule sets before they are persisted for unattended runs
type Validator struct {
	structs *validator.Validate
	// SkipSystemChecks disables the user and engine path lookups.
	SkipSystemChecks bool
}

// New creates a new Validator
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{structs: v}
}

// Validate runs structural, semantic and advisory checks over a schedule set
func (v *Validator) Validate(set models.ScheduleSet) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	if len(set.BlockSchedules) == 0 {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictNoSchedules,
			Severity:    SeverityError,
			Description: "You need at least one schedule in 'block-schedules'.",
			Field:       "block-schedules",
		})
	}

	if err := v.structs.Struct(set); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if c, ok := conflictFromFieldError(fe); ok {
					result.Conflicts = append(result.Conflicts, c)
				}
			}
		} else {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidValue,
				Severity:    SeverityError,
				Description: err.Error(),
			})
		}
	}

	if !utils.ValidateTimezone(set.Timezone) {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictInvalidTimezone,
			Severity:    SeverityError,
			Description: fmt.Sprintf("Unknown timezone %q.", set.Timezone),
			Field:       "timezone",
		})
	}

	if !v.SkipSystemChecks {
		result.Conflicts = append(result.Conflicts, checkSystem(set)...)
	}

	if set.HostBlacklist == nil {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictNoGlobalBlacklist,
			Severity:    SeverityWarning,
			Description: "It is not recommended to directly use the engine's own blacklist. Please use the 'host-blacklist' setting instead.",
			Field:       "host-blacklist",
		})
	}

	result.Conflicts = append(result.Conflicts, findOverlaps(set.BlockSchedules)...)

	return result
}

func checkSystem(set models.ScheduleSet) []Conflict {
	var conflicts []Conflict

	if set.Username != "" {
		if _, err := lookupUserFunc(set.Username); err != nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictUnknownUser,
				Severity:    SeverityError,
				Description: fmt.Sprintf("Username '%s' unknown. Please use your login name (see 'whoami').", set.Username),
				Field:       "username",
			})
		}
	}

	if set.EnginePath != "" {
		path, err := utils.ExpandPath(set.EnginePath)
		if err == nil {
			_, err = statFunc(path)
		}
		if err != nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictEngineNotFound,
				Severity:    SeverityError,
				Description: fmt.Sprintf("The setting 'selfcontrol-path' does not point to the blocking engine (%s). Use an absolute path.", set.EnginePath),
				Field:       "selfcontrol-path",
			})
		}
	}

	return conflicts
}

func conflictFromFieldError(fe validator.FieldError) (Conflict, bool) {
	field := strings.TrimPrefix(fe.Namespace(), "ScheduleSet.")

	switch fe.Tag() {
	case "required":
		if field == "block-schedules" {
			// reported as ConflictNoSchedules
			return Conflict{}, false
		}
		return Conflict{
			Type:        ConflictMissingField,
			Severity:    SeverityError,
			Description: fmt.Sprintf("The setting '%s' is required.", field),
			Field:       field,
		}, true
	case "min", "max":
		if field == "block-schedules" {
			return Conflict{}, false
		}
		return Conflict{
			Type:        ConflictInvalidValue,
			Severity:    SeverityError,
			Description: fmt.Sprintf("'%s' is %v, must be %s %s.", field, fe.Value(), boundWord(fe.Tag()), fe.Param()),
			Field:       field,
		}, true
	default:
		return Conflict{
			Type:        ConflictInvalidValue,
			Severity:    SeverityError,
			Description: fmt.Sprintf("'%s' failed the '%s' check.", field, fe.Tag()),
			Field:       field,
		}, true
	}
}

func boundWord(tag string) string {
	if tag == "min" {
		return "at least"
	}
	return "at most"
}
