package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableKind distinguishes the weekly class grid from the dated exam grid.
type TimetableKind string

const (
	TimetableKindClass TimetableKind = "class"
	TimetableKindExam  TimetableKind = "exam"
)

// Valid reports whether the kind is one of the supported modes.
func (k TimetableKind) Valid() bool {
	return k == TimetableKindClass || k == TimetableKindExam
}

// Entry is a single placed line in a timetable: either a fixed event or a
// scheduled course/exam meeting. StartFrom and EndsAt are HH:MM:SS strings.
type Entry struct {
	CourseID    string   `json:"courseId,omitempty"`
	Code        string   `json:"code,omitempty"`
	Name        string   `json:"name"`
	Venue       string   `json:"venue"`
	StartFrom   string   `json:"startFrom"`
	EndsAt      string   `json:"endsAt"`
	Departments []string `json:"departments,omitempty"`
	Levels      []string `json:"levels,omitempty"`
	Fixed       bool     `json:"fixed,omitempty"`
}

// Timetable is the document shape persisted and rendered: weekday names
// (Monday..Friday, class mode) or ISO dates (exam mode) mapped to entries in
// placement order, not time order.
type Timetable map[string][]Entry

// TimetableRecord is the stored row wrapping a timetable document.
type TimetableRecord struct {
	ID           string         `db:"id" json:"id"`
	DepartmentID string         `db:"department_id" json:"department_id"`
	Kind         TimetableKind  `db:"kind" json:"kind"`
	Institution  string         `db:"institution" json:"institution"`
	Doc          types.JSONText `db:"doc" json:"doc"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Table decodes the stored document.
func (r *TimetableRecord) Table() (Timetable, error) {
	table := Timetable{}
	if len(r.Doc) == 0 {
		return table, nil
	}
	if err := json.Unmarshal(r.Doc, &table); err != nil {
		return nil, err
	}
	return table, nil
}

// SetTable encodes the document back onto the record.
func (r *TimetableRecord) SetTable(table Timetable) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return err
	}
	r.Doc = types.JSONText(raw)
	return nil
}
