package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/response"
)

const maxCombinedDepartments = 64

type timetableOperator interface {
	GenerateClass(ctx context.Context, req dto.GenerateClassTimetableRequest) (*dto.TimetableResponse, error)
	GenerateExams(ctx context.Context, req dto.GenerateExamTimetableRequest) (*dto.TimetableResponse, error)
	Get(ctx context.Context, departmentID string, kind models.TimetableKind) (*dto.TimetableResponse, error)
	Combined(ctx context.Context, query dto.CombinedTimetableQuery) (*dto.CombinedTimetableResponse, error)
	MoveCourse(ctx context.Context, departmentID, courseID string, req dto.MoveCourseRequest) (*dto.TimetableResponse, error)
	Delete(ctx context.Context, departmentID string, kind models.TimetableKind) error
}

// TimetableHandler exposes timetable generation and retrieval endpoints.
type TimetableHandler struct {
	service timetableOperator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// GenerateClass builds the weekly class timetable for a department.
func (h *TimetableHandler) GenerateClass(c *gin.Context) {
	var req dto.GenerateClassTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.GenerateClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// GenerateExams builds the exam timetable for a department within a date range.
func (h *TimetableHandler) GenerateExams(c *gin.Context) {
	var req dto.GenerateExamTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.GenerateExams(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get serves a stored timetable. Kind defaults to class.
func (h *TimetableHandler) Get(c *gin.Context) {
	kind := c.DefaultQuery("kind", string(models.TimetableKindClass))
	result, err := h.service.Get(c.Request.Context(), c.Param("departmentId"), models.TimetableKind(kind))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Combined merges stored timetables across departments.
func (h *TimetableHandler) Combined(c *gin.Context) {
	query := dto.CombinedTimetableQuery{
		DepartmentIDs: splitDepartmentIDs(c.QueryArray("departmentIds")),
		Kind:          c.DefaultQuery("kind", string(models.TimetableKindClass)),
	}
	if len(query.DepartmentIDs) > maxCombinedDepartments {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "departmentIds exceeds supported limit"))
		return
	}
	result, err := h.service.Combined(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete removes a stored timetable. Kind defaults to class.
func (h *TimetableHandler) Delete(c *gin.Context) {
	kind := c.DefaultQuery("kind", string(models.TimetableKindClass))
	if err := h.service.Delete(c.Request.Context(), c.Param("departmentId"), models.TimetableKind(kind)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MoveCourse relocates a placed course to a new day and start time.
func (h *TimetableHandler) MoveCourse(c *gin.Context) {
	var req dto.MoveCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid move payload"))
		return
	}
	result, err := h.service.MoveCourse(c.Request.Context(), c.Param("departmentId"), c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// splitDepartmentIDs accepts both repeated query params and a single
// comma-separated value.
func splitDepartmentIDs(raw []string) []string {
	var ids []string
	for _, value := range raw {
		for _, id := range strings.Split(value, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
