package engine

import (
	"strings"
	"time"
)

// MarkerPrefix opens every ownership marker written into a managed event's
// free-text fields. Decoders of every future version must keep recognizing
// this literal, so it never changes.
const MarkerPrefix = "calsync:v1"

// Marker is the machine-parseable ownership tag embedded in a target event.
// It is an advisory identity hint next to the mapping table, not the source of
// truth; any subset of fields may survive user editing.
type Marker struct {
	Owner      string    // tag of the sync that created the event
	SourceID   string    // UID of the source event, when known
	Occurrence time.Time // occurrence instant, zero when absent
	SyncKey    string    // full occurrence key, when known
}

// Encode renders the marker as a single text line: the prefix followed by
// space-separated key=value tokens. Empty fields are omitted.
func (m Marker) Encode() string {
	parts := []string{MarkerPrefix}
	if m.Owner != "" {
		parts = append(parts, "owner="+m.Owner)
	}
	if m.SourceID != "" {
		parts = append(parts, "src="+m.SourceID)
	}
	if !m.Occurrence.IsZero() {
		parts = append(parts, "occ="+m.Occurrence.UTC().Format(time.RFC3339))
	}
	if m.SyncKey != "" {
		parts = append(parts, "key="+m.SyncKey)
	}
	return strings.Join(parts, " ")
}

// DecodeMarker scans the notes text and then the URL text for a marker and
// returns the first one found. ok is false when neither text carries at least
// one parseable field. Malformed or truncated text is a normal outcome, never
// an error.
func DecodeMarker(notes, url string) (Marker, bool) {
	if m, ok := decodeMarkerText(notes); ok {
		return m, true
	}
	return decodeMarkerText(url)
}

func decodeMarkerText(text string) (Marker, bool) {
	idx := strings.Index(text, MarkerPrefix)
	if idx < 0 {
		return Marker{}, false
	}
	rest := text[idx+len(MarkerPrefix):]
	if nl := strings.IndexAny(rest, "\r\n"); nl >= 0 {
		rest = rest[:nl]
	}

	var m Marker
	recognized := false
	for _, tok := range strings.Fields(rest) {
		eq := strings.Index(tok, "=")
		if eq <= 0 {
			continue
		}
		// The value is everything after the first '='.
		key, val := tok[:eq], tok[eq+1:]
		switch key {
		case "owner":
			m.Owner = val
			recognized = true
		case "src":
			m.SourceID = val
			recognized = true
		case "occ":
			t, err := time.Parse(time.RFC3339, val)
			if err != nil {
				continue
			}
			m.Occurrence = t.UTC()
			recognized = true
		case "key":
			m.SyncKey = val
			recognized = true
		}
	}
	return m, recognized
}

// OwnedBy reports whether the marker's owner tag matches tag. Markers without
// an owner field match nothing.
func (m Marker) OwnedBy(tag string) bool {
	return m.Owner != "" && m.Owner == tag
}
