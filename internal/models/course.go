package models

// Course is one course meeting to be placed on the weekly grid. Venue and
// scope identifiers arrive already resolved by the data layer.
type Course struct {
	ID            string `db:"id" json:"id"`
	Code          string `db:"code" json:"code"`
	Title         string `db:"title" json:"title"`
	Units         int    `db:"units" json:"units"`
	DurationHours int    `db:"duration_hours" json:"duration_hours"`
	Venue         string `db:"venue" json:"venue"`
	DepartmentID  string `db:"department_id" json:"department_id"`
	LevelID       string `db:"level_id" json:"level_id"`
}

// ExamCourse is one examination to be placed exactly once across a date range.
type ExamCourse struct {
	ID            string `db:"id" json:"id"`
	CourseID      string `db:"course_id" json:"course_id"`
	Code          string `db:"code" json:"code"`
	Title         string `db:"title" json:"title"`
	Units         int    `db:"units" json:"units"`
	DurationHours int    `db:"duration_hours" json:"duration_hours"`
	Venue         string `db:"venue" json:"venue"`
	LevelID       string `db:"level_id" json:"level_id"`
}
