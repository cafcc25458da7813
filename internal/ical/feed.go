// Package ical renders occurrence listings as iCalendar feeds that calendar
// clients can subscribe to.
package ical

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// Event is one VEVENT of a feed. Start and End are instants; UID must be
// stable across renders so subscribed clients update instead of duplicate.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// Feed names a calendar and carries the events to render.
type Feed struct {
	Name   string
	Events []Event
}

// Render serialises the feed as an iCalendar document.
func Render(feed Feed, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//hourly//office hours//EN")
	if feed.Name != "" {
		cal.SetXWRCalName(feed.Name)
	}

	for _, event := range feed.Events {
		uid := event.UID
		if uid == "" {
			uid = fmt.Sprintf("%s-%s@hourly", event.Start.UTC().Format("20060102T150405Z"), event.Summary)
		}

		vevent := cal.AddEvent(uid)
		vevent.SetDtStampTime(now.UTC())
		vevent.SetStartAt(event.Start.UTC())
		vevent.SetEndAt(event.End.UTC())
		vevent.SetSummary(event.Summary)
		if event.Location != "" {
			vevent.SetLocation(event.Location)
		}
		if event.Description != "" {
			vevent.SetDescription(event.Description)
		}
	}

	return cal.Serialize()
}
