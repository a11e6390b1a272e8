package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kellertobias/calsync/internal/domain"
)

// Passes reports whether occ satisfies every rule. Rules form an unordered
// conjunction: a single failing rule excludes the occurrence, whatever its
// position in the list.
func Passes(occ *domain.Occurrence, rules []domain.FilterRule, ownerTag string) bool {
	for i := range rules {
		if !passesRule(occ, &rules[i], ownerTag) {
			return false
		}
	}
	return true
}

func passesRule(occ *domain.Occurrence, r *domain.FilterRule, ownerTag string) bool {
	switch r.Kind {
	case domain.RuleIncludeTitle:
		return matchText(occ.Title, r)
	case domain.RuleExcludeTitle:
		return !matchText(occ.Title, r)
	case domain.RuleIncludeLocation:
		return matchText(occ.Location, r)
	case domain.RuleExcludeLocation:
		return !matchText(occ.Location, r)
	case domain.RuleIncludeNotes:
		return matchText(occ.Notes, r)
	case domain.RuleExcludeNotes:
		return !matchText(occ.Notes, r)
	case domain.RuleIncludeOrganizer:
		return matchText(occ.Organizer, r)
	case domain.RuleExcludeOrganizer:
		return !matchText(occ.Organizer, r)

	case domain.RuleIncludeAttendee:
		return matchAnyAttendee(occ.Attendees, r)
	case domain.RuleExcludeAttendee:
		return !matchAnyAttendee(occ.Attendees, r)

	case domain.RuleMinDuration, domain.RuleMaxDuration:
		d, ok := occ.Duration()
		minutes, err := strconv.Atoi(strings.TrimSpace(r.Pattern))
		if !ok || err != nil {
			// Threshold or duration unavailable: the rule is a no-op.
			return true
		}
		threshold := time.Duration(minutes) * time.Minute
		if r.Kind == domain.RuleMinDuration {
			return d >= threshold
		}
		return d <= threshold

	case domain.RuleExcludeAllDay:
		return !occ.AllDay
	case domain.RuleOnlyAllDay:
		return occ.AllDay
	case domain.RuleExcludeAllDayFree:
		return !(occ.AllDay && !occ.Busy)

	case domain.RuleExcludeRepeating:
		return !occ.Repeating
	case domain.RuleOnlyRepeating:
		return occ.Repeating

	case domain.RuleOnlyBusy:
		return occ.Busy
	case domain.RuleOnlyFree:
		return !occ.Busy

	case domain.RuleIgnoreOtherSync:
		m, ok := DecodeMarker(occ.Notes, occ.URL)
		return !(ok && m.Owner != "" && m.Owner != ownerTag)
	case domain.RuleIgnoreAnySync:
		_, ok := DecodeMarker(occ.Notes, occ.URL)
		return !ok
	}

	// Unknown kinds are rejected at config load; here they are no-ops.
	return true
}

func matchText(s string, r *domain.FilterRule) bool {
	if r.Regex {
		pattern := r.Pattern
		if !r.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			// Un-compilable patterns are rejected at config load; one that
			// arrives here anyway matches nothing.
			return false
		}
		return re.MatchString(s)
	}
	if r.CaseSensitive {
		return strings.Contains(s, r.Pattern)
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(r.Pattern))
}

func matchAnyAttendee(attendees []string, r *domain.FilterRule) bool {
	for _, a := range attendees {
		if matchText(a, r) {
			return true
		}
	}
	return false
}
