package domain

// RuleKind selects what a filter rule tests.
type RuleKind string

const (
	RuleIncludeTitle     RuleKind = "include_title"
	RuleExcludeTitle     RuleKind = "exclude_title"
	RuleIncludeLocation  RuleKind = "include_location"
	RuleExcludeLocation  RuleKind = "exclude_location"
	RuleIncludeNotes     RuleKind = "include_notes"
	RuleExcludeNotes     RuleKind = "exclude_notes"
	RuleIncludeOrganizer RuleKind = "include_organizer"
	RuleExcludeOrganizer RuleKind = "exclude_organizer"
	RuleIncludeAttendee  RuleKind = "include_attendee"
	RuleExcludeAttendee  RuleKind = "exclude_attendee"

	// Pattern is a threshold in minutes.
	RuleMinDuration RuleKind = "min_duration"
	RuleMaxDuration RuleKind = "max_duration"

	RuleExcludeAllDay     RuleKind = "exclude_all_day"
	RuleOnlyAllDay        RuleKind = "only_all_day"
	RuleExcludeAllDayFree RuleKind = "exclude_all_day_free"

	RuleExcludeRepeating RuleKind = "exclude_repeating"
	RuleOnlyRepeating    RuleKind = "only_repeating"

	RuleOnlyBusy RuleKind = "only_busy"
	RuleOnlyFree RuleKind = "only_free"

	// RuleIgnoreOtherSync rejects occurrences whose own notes/URL carry a
	// recognized marker owned by a different sync. RuleIgnoreAnySync is the
	// blunt variant: any recognized marker rejects, owner regardless.
	RuleIgnoreOtherSync RuleKind = "ignore_other_sync"
	RuleIgnoreAnySync   RuleKind = "ignore_any_sync"
)

var knownRuleKinds = map[RuleKind]bool{
	RuleIncludeTitle: true, RuleExcludeTitle: true,
	RuleIncludeLocation: true, RuleExcludeLocation: true,
	RuleIncludeNotes: true, RuleExcludeNotes: true,
	RuleIncludeOrganizer: true, RuleExcludeOrganizer: true,
	RuleIncludeAttendee: true, RuleExcludeAttendee: true,
	RuleMinDuration: true, RuleMaxDuration: true,
	RuleExcludeAllDay: true, RuleOnlyAllDay: true, RuleExcludeAllDayFree: true,
	RuleExcludeRepeating: true, RuleOnlyRepeating: true,
	RuleOnlyBusy: true, RuleOnlyFree: true,
	RuleIgnoreOtherSync: true, RuleIgnoreAnySync: true,
}

// KnownRuleKind reports whether k is a kind the evaluator understands.
func KnownRuleKind(k RuleKind) bool {
	return knownRuleKinds[k]
}

// FilterRule is one inclusion/exclusion condition. An occurrence must satisfy
// every configured rule to be synced.
type FilterRule struct {
	Kind          RuleKind
	Pattern       string
	CaseSensitive bool
	Regex         bool // Pattern is a regular expression instead of a substring
}
