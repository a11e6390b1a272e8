package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMayDeleteRequiresAllConditions(t *testing.T) {
	marker := &Marker{Owner: "me"}

	// All conditions hold.
	assert.True(t, MayDelete("cal-1", "cal-1", marker, "me", true))

	// Flipping any single condition flips the result.
	assert.False(t, MayDelete("cal-1", "cal-2", marker, "me", true), "event moved out of the target calendar")
	assert.False(t, MayDelete("cal-1", "cal-1", nil, "me", true), "no recognized marker")
	assert.False(t, MayDelete("cal-1", "cal-1", marker, "me", false), "no mapping row")
}

func TestMayDeleteForeignOwner(t *testing.T) {
	assert.False(t, MayDelete("cal-1", "cal-1", &Marker{Owner: "other"}, "me", true))
}

func TestMayDeleteDegradedMarkerWithoutOwner(t *testing.T) {
	// A recognized marker that lost its owner token does not claim a foreign
	// owner; the mapping row and calendar check still guard the delete.
	assert.True(t, MayDelete("cal-1", "cal-1", &Marker{SourceID: "uid"}, "me", true))
}

func TestMayDeleteEmptyTargetCalendar(t *testing.T) {
	assert.False(t, MayDelete("", "", &Marker{Owner: "me"}, "me", true))
}
