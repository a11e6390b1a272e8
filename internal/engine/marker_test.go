package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerRoundtrip(t *testing.T) {
	occ := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	in := Marker{
		Owner:      "work-to-personal",
		SourceID:   "abc-123@example.com",
		Occurrence: occ,
		SyncKey:    "abc-123@example.com|2026-03-02T09:00:00Z",
	}

	out, ok := DecodeMarker(in.Encode(), "")
	require.True(t, ok)
	assert.Equal(t, in.Owner, out.Owner)
	assert.Equal(t, in.SourceID, out.SourceID)
	assert.True(t, out.Occurrence.Equal(occ))
	assert.Equal(t, in.SyncKey, out.SyncKey)
}

func TestDecodeMarkerValueContainsEquals(t *testing.T) {
	// Values take everything after the first '='.
	m, ok := DecodeMarker(MarkerPrefix+" key=a|2026-03-02T09:00:00Z owner=x=y", "")
	require.True(t, ok)
	assert.Equal(t, "a|2026-03-02T09:00:00Z", m.SyncKey)
	assert.Equal(t, "x=y", m.Owner)
}

func TestDecodeMarkerEmbeddedInNotes(t *testing.T) {
	notes := "Quarterly planning.\n\n" + MarkerPrefix + " owner=tag src=uid-1\ntrailing text"
	m, ok := DecodeMarker(notes, "")
	require.True(t, ok)
	assert.Equal(t, "tag", m.Owner)
	assert.Equal(t, "uid-1", m.SourceID)
}

func TestDecodeMarkerURLFallback(t *testing.T) {
	m, ok := DecodeMarker("no marker here", MarkerPrefix+" owner=tag")
	require.True(t, ok)
	assert.Equal(t, "tag", m.Owner)
}

func TestDecodeMarkerDegradedSubsets(t *testing.T) {
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{"owner only", MarkerPrefix + " owner=tag", true},
		{"src only", MarkerPrefix + " src=uid", true},
		{"bad occ only", MarkerPrefix + " occ=notatime", false},
		{"bad occ plus owner", MarkerPrefix + " occ=notatime owner=tag", true},
		{"unknown keys only", MarkerPrefix + " color=red shape=round", false},
		{"prefix alone", MarkerPrefix, false},
		{"truncated token", MarkerPrefix + " owner", false},
		{"no prefix", "owner=tag src=uid", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := DecodeMarker(tt.text, "")
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestDecodeMarkerNeverPanicsOnGarbage(t *testing.T) {
	garbage := []string{
		MarkerPrefix + " =value",
		MarkerPrefix + " = = =",
		MarkerPrefix + strings.Repeat(" x", 1000),
		"\x00\xff" + MarkerPrefix + " owner=\x00",
	}
	for _, g := range garbage {
		assert.NotPanics(t, func() { DecodeMarker(g, g) })
	}
}

func TestMarkerOwnedBy(t *testing.T) {
	assert.True(t, Marker{Owner: "a"}.OwnedBy("a"))
	assert.False(t, Marker{Owner: "a"}.OwnedBy("b"))
	assert.False(t, Marker{}.OwnedBy("a"))
	assert.False(t, Marker{}.OwnedBy(""))
}
