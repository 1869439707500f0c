package api

import (
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/starford/meetbook/internal/meetingservice"
)

const productID = "-//meetbook//Meetings//EN"

// toICalendar converts a meeting to a single-event calendar.
func toICalendar(entry *meetingservice.CalendarEntry, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	v := entry.View
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, v.ID.Hex())
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, entry.Start.UTC())
	event.Props.SetText(ical.PropSummary, v.Agenda)
	if v.Location != "" {
		event.Props.SetText(ical.PropLocation, v.Location)
	}
	if v.Notes != "" {
		event.Props.SetText(ical.PropDescription, v.Notes)
	}
	for _, a := range v.Attendes {
		if a.Email == "" {
			continue
		}
		attendee := ical.NewProp(ical.PropAttendee)
		attendee.Value = "mailto:" + a.Email
		event.Props.Add(attendee)
	}

	cal.Children = append(cal.Children, event.Component)
	return cal
}

func writeCalendar(w io.Writer, entry *meetingservice.CalendarEntry) error {
	return ical.NewEncoder(w).Encode(toICalendar(entry, time.Now()))
}
