package validation

import (
	"errors"
	"os"
	"os/user"
	"strings"
	"testing"

	apperrors "github.com/julianstephens/autoblock/internal/errors"
	"github.com/julianstephens/autoblock/internal/models"
)

func intPtr(n int) *int {
	return &n
}

func validSet() models.ScheduleSet {
	return models.ScheduleSet{
		Username:      "alice",
		EnginePath:    "/Applications/SelfControl.app",
		HostBlacklist: []string{"twitter.com"},
		BlockSchedules: []models.ScheduleWindow{
			{Weekday: intPtr(3), StartHour: 9, EndHour: 17},
		},
	}
}

// stubSystem makes every user and path lookup succeed unless overridden.
func stubSystem(t *testing.T, userErr, statErr error) {
	t.Helper()
	oldLookup, oldStat := lookupUserFunc, statFunc
	t.Cleanup(func() {
		lookupUserFunc = oldLookup
		statFunc = oldStat
	})
	lookupUserFunc = func(name string) (*user.User, error) {
		if userErr != nil {
			return nil, userErr
		}
		return &user.User{Username: name, Uid: "501"}, nil
	}
	statFunc = func(string) (os.FileInfo, error) {
		if statErr != nil {
			return nil, statErr
		}
		return nil, nil
	}
}

func hasConflict(result ValidationResult, typ ConflictType) bool {
	for _, c := range result.Conflicts {
		if c.Type == typ {
			return true
		}
	}
	return false
}

func TestValidate_ValidConfig(t *testing.T) {
	stubSystem(t, nil, nil)

	result := New().Validate(validSet())
	if result.HasErrors() {
		t.Fatalf("expected no errors, got:\n%s", result.FormatReport())
	}
	if err := result.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("expected clean report, got:\n%s", result.FormatReport())
	}
}

func TestValidate_MissingFields(t *testing.T) {
	stubSystem(t, nil, nil)

	set := validSet()
	set.Username = ""
	set.EnginePath = ""

	result := New().Validate(set)
	if !result.HasErrors() {
		t.Fatal("expected errors for missing fields")
	}

	report := result.FormatReport()
	for _, field := range []string{"'username'", "'selfcontrol-path'"} {
		if !strings.Contains(report, field) {
			t.Errorf("report does not mention %s:\n%s", field, report)
		}
	}
	if !apperrors.IsConfig(result.Err()) {
		t.Error("Err() should be a ConfigError")
	}
}

func TestValidate_NoSchedules(t *testing.T) {
	stubSystem(t, nil, nil)

	for name, schedules := range map[string][]models.ScheduleWindow{
		"nil":   nil,
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			set := validSet()
			set.BlockSchedules = schedules

			result := New().Validate(set)
			if !hasConflict(result, ConflictNoSchedules) {
				t.Errorf("expected ConflictNoSchedules, got:\n%s", result.FormatReport())
			}
			count := 0
			for _, c := range result.Conflicts {
				if c.Field == "block-schedules" {
					count++
				}
			}
			if count != 1 {
				t.Errorf("expected a single block-schedules conflict, got %d", count)
			}
		})
	}
}

func TestValidate_OutOfRangeValues(t *testing.T) {
	stubSystem(t, nil, nil)

	tests := []struct {
		name   string
		window models.ScheduleWindow
		field  string
	}{
		{"hour too large", models.ScheduleWindow{StartHour: 24, EndHour: 1}, "start-hour"},
		{"negative minute", models.ScheduleWindow{StartHour: 1, EndHour: 2, EndMinute: -1}, "end-minute"},
		{"minute too large", models.ScheduleWindow{StartHour: 1, StartMinute: 60, EndHour: 2}, "start-minute"},
		{"weekday zero", models.ScheduleWindow{Weekday: intPtr(0), StartHour: 1, EndHour: 2}, "weekday"},
		{"weekday eight", models.ScheduleWindow{Weekday: intPtr(8), StartHour: 1, EndHour: 2}, "weekday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := validSet()
			set.BlockSchedules = []models.ScheduleWindow{tt.window}

			result := New().Validate(set)
			found := false
			for _, c := range result.Conflicts {
				if c.Type == ConflictInvalidValue && strings.HasSuffix(c.Field, tt.field) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected invalid value on %s, got:\n%s", tt.field, result.FormatReport())
			}
		})
	}
}

func TestValidate_EmptyHostEntry(t *testing.T) {
	stubSystem(t, nil, nil)

	set := validSet()
	set.HostBlacklist = []string{"twitter.com", ""}

	result := New().Validate(set)
	if !result.HasErrors() {
		t.Errorf("expected an error for an empty host entry")
	}
}

func TestValidate_UnknownUserAndEngine(t *testing.T) {
	stubSystem(t, errors.New("unknown user"), os.ErrNotExist)

	result := New().Validate(validSet())
	if !hasConflict(result, ConflictUnknownUser) {
		t.Error("expected ConflictUnknownUser")
	}
	if !hasConflict(result, ConflictEngineNotFound) {
		t.Error("expected ConflictEngineNotFound")
	}
}

func TestValidate_SkipSystemChecks(t *testing.T) {
	stubSystem(t, errors.New("unknown user"), os.ErrNotExist)

	v := New()
	v.SkipSystemChecks = true
	result := v.Validate(validSet())
	if result.HasErrors() {
		t.Errorf("system checks should be skipped, got:\n%s", result.FormatReport())
	}
}

func TestValidate_InvalidTimezone(t *testing.T) {
	stubSystem(t, nil, nil)

	set := validSet()
	set.Timezone = "Mars/Olympus_Mons"
	if !hasConflict(New().Validate(set), ConflictInvalidTimezone) {
		t.Error("expected ConflictInvalidTimezone")
	}
}

func TestValidate_NoGlobalBlacklistIsWarning(t *testing.T) {
	stubSystem(t, nil, nil)

	set := validSet()
	set.HostBlacklist = nil

	result := New().Validate(set)
	if result.HasErrors() {
		t.Errorf("missing global blacklist should not be fatal:\n%s", result.FormatReport())
	}
	warnings := result.Warnings()
	if len(warnings) != 1 || warnings[0].Type != ConflictNoGlobalBlacklist {
		t.Errorf("expected one ConflictNoGlobalBlacklist warning, got %+v", warnings)
	}
}

func TestFindOverlaps(t *testing.T) {
	tests := []struct {
		name    string
		windows []models.ScheduleWindow
		want    int
	}{
		{
			name: "same day overlapping hours",
			windows: []models.ScheduleWindow{
				{Weekday: intPtr(3), StartHour: 9, EndHour: 17},
				{Weekday: intPtr(3), StartHour: 10, EndHour: 11},
			},
			want: 1,
		},
		{
			name: "different days",
			windows: []models.ScheduleWindow{
				{Weekday: intPtr(3), StartHour: 9, EndHour: 17},
				{Weekday: intPtr(4), StartHour: 9, EndHour: 17},
			},
			want: 0,
		},
		{
			name: "midnight window runs into next morning",
			windows: []models.ScheduleWindow{
				{Weekday: intPtr(1), StartHour: 22, EndHour: 6},
				{Weekday: intPtr(2), StartHour: 5, EndHour: 8},
			},
			want: 1,
		},
		{
			name: "sunday night wraps into monday",
			windows: []models.ScheduleWindow{
				{Weekday: intPtr(7), StartHour: 23, EndHour: 2},
				{Weekday: intPtr(1), StartHour: 1, EndHour: 3},
			},
			want: 1,
		},
		{
			name: "every day window overlaps any weekday window",
			windows: []models.ScheduleWindow{
				{StartHour: 12, EndHour: 13},
				{Weekday: intPtr(6), StartHour: 12, StartMinute: 30, EndHour: 14},
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findOverlaps(tt.windows)
			if len(got) != tt.want {
				t.Errorf("findOverlaps() returned %d conflicts, want %d: %+v", len(got), tt.want, got)
			}
			for _, c := range got {
				if c.Severity != SeverityWarning {
					t.Errorf("overlap should be a warning, got %s", c.Severity)
				}
			}
		})
	}
}
