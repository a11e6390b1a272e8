package engine

// MayDelete is the final gate in front of every delete candidate, including
// purge. A target event may be deleted only when ALL of the following hold:
// its calendar equals the configured target calendar, a recognized marker not
// claiming a foreign owner is present, and a mapping row exists for its key.
// Anything missing means the event is left alone.
func MayDelete(targetCalendarID, eventCalendarID string, marker *Marker, ownerTag string, hasMappingRow bool) bool {
	if targetCalendarID == "" || eventCalendarID != targetCalendarID {
		return false
	}
	if marker == nil {
		return false
	}
	if marker.Owner != "" && marker.Owner != ownerTag {
		return false
	}
	return hasMappingRow
}
