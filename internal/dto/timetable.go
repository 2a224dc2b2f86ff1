package dto

import "github.com/noah-isme/uni-timetable-api/internal/models"

// GenerateClassTimetableRequest asks the generator to build the weekly class
// timetable for a department.
type GenerateClassTimetableRequest struct {
	DepartmentID string   `json:"departmentId" validate:"required"`
	Notify       []string `json:"notify" validate:"omitempty,dive,email"`
}

// GenerateExamTimetableRequest asks the generator to place a department's
// exams inside the given date range.
type GenerateExamTimetableRequest struct {
	DepartmentID string   `json:"departmentId" validate:"required"`
	StartDate    string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate      string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	Notify       []string `json:"notify" validate:"omitempty,dive,email"`
}

// MoveCourseRequest relocates a placed course to a new day and start time.
type MoveCourseRequest struct {
	Day       string `json:"day" validate:"required"`
	StartFrom string `json:"startFrom" validate:"required"`
}

// TimetableResponse returns a stored or freshly generated timetable document.
type TimetableResponse struct {
	DepartmentID string           `json:"departmentId"`
	Kind         string           `json:"kind"`
	Institution  string           `json:"institution"`
	Timetable    models.Timetable `json:"timetable"`
	Omitted      []string         `json:"omitted,omitempty"`
}

// CombinedTimetableQuery selects the departments and kind to merge.
type CombinedTimetableQuery struct {
	DepartmentIDs []string `form:"departmentIds" json:"departmentIds"`
	Kind          string   `form:"kind" json:"kind"`
}

// CombinedTimetableResponse returns the merged view across departments.
type CombinedTimetableResponse struct {
	Kind        string           `json:"kind"`
	Institution string           `json:"institution"`
	Departments []string         `json:"departments"`
	Timetable   models.Timetable `json:"timetable"`
}

// ExportTimetableRequest renders a stored timetable into a downloadable file.
type ExportTimetableRequest struct {
	DepartmentID string `json:"departmentId" validate:"required"`
	Kind         string `json:"kind" validate:"required,oneof=class exam"`
	Format       string `json:"format" validate:"required,oneof=xlsx csv pdf"`
}

// ExportTimetableResponse carries the signed download link.
type ExportTimetableResponse struct {
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   string `json:"expiresAt"`
}
