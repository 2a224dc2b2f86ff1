package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// CourseRepository loads course catalogue rows used by the generators.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListByDepartment returns the courses a department offers, joined with
// their assigned lecture venue. Ordering is stable so repeated generation
// runs place courses in the same sequence.
func (r *CourseRepository) ListByDepartment(ctx context.Context, departmentID string) ([]models.Course, error) {
	const query = `
SELECT c.id, c.code, c.title, c.units, c.duration_hours, v.name AS venue, c.department_id, c.level_id
FROM courses c
JOIN venues v ON v.id = c.venue_id
WHERE c.department_id = $1
ORDER BY c.level_id, c.code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, departmentID); err != nil {
		return nil, fmt.Errorf("list courses for department %s: %w", departmentID, err)
	}
	return courses, nil
}

// ListExamCourses returns the examinable courses for a department with the
// exam hall assigned to each, ordered the same way as the class listing.
func (r *CourseRepository) ListExamCourses(ctx context.Context, departmentID string) ([]models.ExamCourse, error) {
	const query = `
SELECT e.id, e.course_id, c.code, c.title, c.units, e.duration_hours, v.name AS venue, c.level_id
FROM exam_courses e
JOIN courses c ON c.id = e.course_id
JOIN venues v ON v.id = e.venue_id
WHERE c.department_id = $1
ORDER BY c.level_id, c.code`
	var courses []models.ExamCourse
	if err := r.db.SelectContext(ctx, &courses, query, departmentID); err != nil {
		return nil, fmt.Errorf("list exam courses for department %s: %w", departmentID, err)
	}
	return courses, nil
}
