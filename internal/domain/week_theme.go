package domain

// WeekTheme is the periodization label assigned to exactly one week of a
// plan.
type WeekTheme string

const (
	ThemeRebuildEasy       WeekTheme = "rebuild_easy"
	ThemeRebuildStrides    WeekTheme = "rebuild_strides"
	ThemeBuildThreshold    WeekTheme = "build_threshold"
	ThemeBuildMarathonPace WeekTheme = "build_marathon_pace"
	ThemeBuildMixed        WeekTheme = "build_mixed"
	ThemePeak              WeekTheme = "peak"
	ThemeRecovery          WeekTheme = "recovery"
	ThemeTuneUp            WeekTheme = "tune_up"
	ThemeTaper             WeekTheme = "taper"
	ThemeRace              WeekTheme = "race"
)

// Phase returns the macro phase key a theme belongs to, used for template
// phase compatibility matching.
func (t WeekTheme) Phase() string {
	switch t {
	case ThemeRebuildEasy, ThemeRebuildStrides:
		return "rebuild"
	case ThemeBuildThreshold, ThemeBuildMarathonPace, ThemeBuildMixed:
		return "build"
	case ThemePeak:
		return "peak"
	case ThemeRecovery:
		return "recovery"
	case ThemeTuneUp:
		return "tune_up"
	case ThemeTaper, ThemeRace:
		return "taper"
	}
	return string(t)
}

// IsBuild reports whether the theme is a build-emphasis week subject to
// the no-back-to-back emphasis alternation rule.
func (t WeekTheme) IsBuild() bool {
	switch t {
	case ThemeBuildThreshold, ThemeBuildMarathonPace, ThemeBuildMixed:
		return true
	}
	return false
}

// AllowsMarathonPace reports whether marathon-pace segments may appear in
// the week's long run. Rebuild and base-type weeks never allow them.
func (t WeekTheme) AllowsMarathonPace() bool {
	switch t {
	case ThemeBuildMarathonPace, ThemeBuildMixed, ThemePeak:
		return true
	}
	return false
}

// ThemedWeek is one entry of the generated periodization sequence.
// WeekNumber is 1-based; the last week of a plan is always ThemeRace.
type ThemedWeek struct {
	WeekNumber  int       `json:"weekNumber"`
	Theme       WeekTheme `json:"theme"`
	WeekInPhase int       `json:"weekInPhase"` // 1-based position within the phase
	PhaseWeeks  int       `json:"phaseWeeks"`  // total weeks of the phase
}
