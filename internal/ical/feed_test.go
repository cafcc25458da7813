package ical

import (
	"strings"
	"testing"
	"time"
)

func TestRenderFeed(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	feed := Feed{
		Name: "Distributed Systems Office Hours",
		Events: []Event{
			{
				UID:      "oh-1-2025-03-03@hourly",
				Summary:  "Office Hours",
				Location: "Malone 122",
				Start:    time.Date(2025, time.March, 3, 21, 30, 0, 0, time.UTC),
				End:      time.Date(2025, time.March, 3, 22, 0, 0, 0, time.UTC),
			},
		},
	}

	rendered := Render(feed, now)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"END:VCALENDAR",
		"BEGIN:VEVENT",
		"UID:oh-1-2025-03-03@hourly",
		"SUMMARY:Office Hours",
		"LOCATION:Malone 122",
		"DTSTART:20250303T213000Z",
		"DTEND:20250303T220000Z",
		"X-WR-CALNAME:Distributed Systems Office Hours",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered feed missing %q:\n%s", want, rendered)
		}
	}
}

func TestRenderFeedGeneratesUIDWhenMissing(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	feed := Feed{
		Events: []Event{
			{
				Summary: "Office Hours",
				Start:   time.Date(2025, time.March, 3, 21, 30, 0, 0, time.UTC),
				End:     time.Date(2025, time.March, 3, 22, 0, 0, 0, time.UTC),
			},
		},
	}

	rendered := Render(feed, now)
	if !strings.Contains(rendered, "UID:20250303T213000Z-Office Hours@hourly") {
		t.Errorf("expected generated uid in feed:\n%s", rendered)
	}
}
