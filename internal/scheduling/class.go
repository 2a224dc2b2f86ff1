package scheduling

import (
	"fmt"
	"time"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// GenerateClassTimetable builds a Monday-Friday timetable for one department.
// Fixed events pre-occupy their declared intervals; each course request is then
// placed greedily into the first admissible slot scanning Monday through Friday,
// earliest start first. A course with no admissible slot anywhere is omitted
// from the result; callers detect drops by diffing input against output.
// A malformed time string or event day aborts the whole generation.
func GenerateClassTimetable(events []models.FixedEvent, courses []models.Course) (models.Timetable, error) {
	busy := make(map[string][]Interval, len(Weekdays))
	table := models.Timetable{}
	for _, day := range Weekdays {
		table[day] = []models.Entry{}
	}

	for _, event := range events {
		start, err := ParseClock(event.StartFrom)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", event.Name, err)
		}
		end, err := ParseClock(event.EndsAt)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", event.Name, err)
		}
		days, err := eventDays(event)
		if err != nil {
			return nil, err
		}
		scope := Scope{Departments: event.Departments, Levels: event.Levels}
		for _, day := range days {
			busy[day] = append(busy[day], Interval{Start: start, End: end, Scope: scope})
			table[day] = append(table[day], models.Entry{
				Name:        event.Name,
				Venue:       event.Venue,
				StartFrom:   start.String(),
				EndsAt:      end.String(),
				Departments: event.Departments,
				Levels:      event.Levels,
				Fixed:       true,
			})
		}
	}

	for _, course := range courses {
		placeCourse(busy, table, course)
	}
	return table, nil
}

// eventDays expands an event definition to the weekday names it occupies.
// A one-off event landing on a weekend never reaches the weekly grid.
func eventDays(event models.FixedEvent) ([]string, error) {
	if event.Recurring {
		if event.Day == models.EveryDay {
			return Weekdays, nil
		}
		if !IsWeekday(event.Day) {
			return nil, fmt.Errorf("event %q: unknown day %q", event.Name, event.Day)
		}
		return []string{event.Day}, nil
	}
	date, err := time.Parse("2006-01-02", event.Date)
	if err != nil {
		return nil, fmt.Errorf("event %q: parse date %q", event.Name, event.Date)
	}
	day := date.Weekday().String()
	if !IsWeekday(day) {
		return nil, nil
	}
	return []string{day}, nil
}

// placeCourse assigns the course to the first admissible slot across the
// weekday scan order, or drops it silently when every day is exhausted.
func placeCourse(busy map[string][]Interval, table models.Timetable, course models.Course) {
	scope := Scope{Departments: []string{course.DepartmentID}, Levels: []string{course.LevelID}}
	for _, day := range Weekdays {
		slots := FilterByScope(FreeSlots(dayIntervals(busy, day), course.DurationHours), course.DepartmentID, course.LevelID)
		if len(slots) == 0 {
			continue
		}
		slot := slots[0]
		busy[day] = append(busy[day], Interval{Start: slot.Start, End: slot.End, Scope: scope})
		table[day] = append(table[day], models.Entry{
			CourseID:    course.ID,
			Code:        course.Code,
			Name:        course.Title,
			Venue:       course.Venue,
			StartFrom:   slot.Start.String(),
			EndsAt:      slot.End.String(),
			Departments: scope.Departments,
			Levels:      scope.Levels,
		})
		return
	}
}

// dayIntervals is the single accessor for a day's occupied timeline. All
// placed entries share one timeline regardless of venue, so two meetings in
// different rooms at the same hour still conflict; a venue-partitioned
// variant only needs to change this function.
func dayIntervals(busy map[string][]Interval, day string) []Interval {
	return busy[day]
}
