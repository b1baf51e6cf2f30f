package models

// ScheduleWindow is one recurring weekly block window. End may be earlier on
// the clock than start, in which case the window runs past midnight.
type ScheduleWindow struct {
	Weekday          *int     `json:"weekday,omitempty" yaml:"weekday,omitempty" validate:"omitempty,min=1,max=7"`
	StartHour        int      `json:"start-hour" yaml:"start-hour" validate:"min=0,max=23"`
	StartMinute      int      `json:"start-minute" yaml:"start-minute" validate:"min=0,max=59"`
	EndHour          int      `json:"end-hour" yaml:"end-hour" validate:"min=0,max=23"`
	EndMinute        int      `json:"end-minute" yaml:"end-minute" validate:"min=0,max=59"`
	BlockAsWhitelist bool     `json:"block-as-whitelist,omitempty" yaml:"block-as-whitelist,omitempty"`
	HostBlacklist    []string `json:"host-blacklist,omitempty" yaml:"host-blacklist,omitempty" validate:"omitempty,dive,required"`
}

// Weekdays returns the ISO weekdays (1=Monday ... 7=Sunday) the window starts on.
func (w ScheduleWindow) Weekdays() []int {
	if w.Weekday != nil {
		return []int{*w.Weekday}
	}
	return []int{1, 2, 3, 4, 5, 6, 7}
}

// StartMinutes returns the start clock time as minutes from midnight.
func (w ScheduleWindow) StartMinutes() int {
	return w.StartHour*60 + w.StartMinute
}

// EndMinutes returns the end clock time as minutes from midnight.
func (w ScheduleWindow) EndMinutes() int {
	return w.EndHour*60 + w.EndMinute
}

// SpansMidnight reports whether the window ends on the day after it starts.
func (w ScheduleWindow) SpansMidnight() bool {
	return w.EndMinutes() < w.StartMinutes()
}

// ScheduleSet is the full configuration handed to every run.
type ScheduleSet struct {
	Username       string           `json:"username" yaml:"username" validate:"required"`
	EnginePath     string           `json:"selfcontrol-path" yaml:"selfcontrol-path" validate:"required"`
	HostBlacklist  []string         `json:"host-blacklist,omitempty" yaml:"host-blacklist,omitempty" validate:"omitempty,dive,required"`
	BlockSchedules []ScheduleWindow `json:"block-schedules" yaml:"block-schedules" validate:"required,min=1,dive"`
	Timezone       string           `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	LegacyMode     *bool            `json:"legacy-mode,omitempty" yaml:"legacy-mode,omitempty"`
}

// Blocklist is the resolved host list and mode for a single blocking session.
type Blocklist struct {
	HostBlacklist    []string `plist:"HostBlacklist" json:"HostBlacklist"`
	BlockAsWhitelist bool     `plist:"BlockAsWhitelist" json:"BlockAsWhitelist"`
}

// ResolveBlocklist returns the effective blocklist for a window. A window-level
// host list takes precedence over the set's global list.
func (s ScheduleSet) ResolveBlocklist(w ScheduleWindow) Blocklist {
	hosts := s.HostBlacklist
	if w.HostBlacklist != nil {
		hosts = w.HostBlacklist
	}
	out := make([]string, len(hosts))
	copy(out, hosts)
	return Blocklist{
		HostBlacklist:    out,
		BlockAsWhitelist: w.BlockAsWhitelist,
	}
}
