package scheduling

import (
	"fmt"
	"time"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// DateLayout is the ISO form used for exam timetable keys.
const DateLayout = "2006-01-02"

// GenerateExamTimetable places each exam course exactly once across the
// inclusive [startDate, endDate] range, walking business days in chronological
// order and courses in input order. Saturdays and Sundays are skipped entirely
// and contribute no date key. An exam that finds no capacity on any date is
// omitted silently; an unparseable or inverted range aborts the call.
func GenerateExamTimetable(courses []models.ExamCourse, startDate, endDate string) (models.Timetable, error) {
	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("parse start date %q", startDate)
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("parse end date %q", endDate)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s precedes start date %s", endDate, startDate)
	}

	table := models.Timetable{}
	busy := map[string][]Interval{}
	placed := make(map[string]bool, len(courses))

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		key := day.Format(DateLayout)
		for _, course := range courses {
			if placed[course.ID] {
				continue
			}
			slots := FreeSlots(busy[key], course.DurationHours)
			if len(slots) == 0 {
				continue
			}
			slot := slots[0]
			busy[key] = append(busy[key], Interval{Start: slot.Start, End: slot.End})
			table[key] = append(table[key], models.Entry{
				CourseID:  course.CourseID,
				Code:      course.Code,
				Name:      course.Title,
				Venue:     course.Venue,
				StartFrom: slot.Start.String(),
				EndsAt:    slot.End.String(),
				Levels:    levelTag(course.LevelID),
			})
			placed[course.ID] = true
		}
	}
	return table, nil
}

func levelTag(levelID string) []string {
	if levelID == "" {
		return nil
	}
	return []string{levelID}
}
