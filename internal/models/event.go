package models

import "github.com/lib/pq"

// EveryDay marks a recurring event that occupies its interval on all five weekdays.
const EveryDay = "Everyday"

// FixedEvent is a standing commitment that pre-occupies its declared interval
// unconditionally; it is never subject to slot search. A recurring event repeats
// on Day (a weekday name or EveryDay); a one-off event occupies only the weekday
// of Date. Empty scope arrays mean the event blocks every department/level.
type FixedEvent struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Venue       string         `db:"venue" json:"venue"`
	StartFrom   string         `db:"start_from" json:"start_from"`
	EndsAt      string         `db:"ends_at" json:"ends_at"`
	Recurring   bool           `db:"recurring" json:"recurring"`
	Day         string         `db:"day" json:"day,omitempty"`
	Date        string         `db:"event_date" json:"date,omitempty"`
	Departments pq.StringArray `db:"department_scope" json:"department_scope,omitempty"`
	Levels      pq.StringArray `db:"level_scope" json:"level_scope,omitempty"`
}
