package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type timetableOperatorMock struct {
	classReq     dto.GenerateClassTimetableRequest
	examReq      dto.GenerateExamTimetableRequest
	getDept      string
	getKind      models.TimetableKind
	combined     dto.CombinedTimetableQuery
	deleteDept   string
	deleteKind   models.TimetableKind
	moveDept     string
	moveCourse   string
	moveReq      dto.MoveCourseRequest
	err          error
	combinedResp *dto.CombinedTimetableResponse
}

func (m *timetableOperatorMock) GenerateClass(ctx context.Context, req dto.GenerateClassTimetableRequest) (*dto.TimetableResponse, error) {
	m.classReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.TimetableResponse{DepartmentID: req.DepartmentID, Kind: "class"}, nil
}

func (m *timetableOperatorMock) GenerateExams(ctx context.Context, req dto.GenerateExamTimetableRequest) (*dto.TimetableResponse, error) {
	m.examReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.TimetableResponse{DepartmentID: req.DepartmentID, Kind: "exam"}, nil
}

func (m *timetableOperatorMock) Get(ctx context.Context, departmentID string, kind models.TimetableKind) (*dto.TimetableResponse, error) {
	m.getDept = departmentID
	m.getKind = kind
	if m.err != nil {
		return nil, m.err
	}
	return &dto.TimetableResponse{DepartmentID: departmentID, Kind: string(kind)}, nil
}

func (m *timetableOperatorMock) Combined(ctx context.Context, query dto.CombinedTimetableQuery) (*dto.CombinedTimetableResponse, error) {
	m.combined = query
	if m.err != nil {
		return nil, m.err
	}
	if m.combinedResp != nil {
		return m.combinedResp, nil
	}
	return &dto.CombinedTimetableResponse{Kind: query.Kind, Departments: query.DepartmentIDs}, nil
}

func (m *timetableOperatorMock) Delete(ctx context.Context, departmentID string, kind models.TimetableKind) error {
	m.deleteDept = departmentID
	m.deleteKind = kind
	return m.err
}

func (m *timetableOperatorMock) MoveCourse(ctx context.Context, departmentID, courseID string, req dto.MoveCourseRequest) (*dto.TimetableResponse, error) {
	m.moveDept = departmentID
	m.moveCourse = courseID
	m.moveReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.TimetableResponse{DepartmentID: departmentID, Kind: "class"}, nil
}

func TestTimetableHandlerGenerateClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{}
	handler := &TimetableHandler{service: mockSvc}

	body := []byte(`{"departmentId":"dept-csc","notify":["hod@example.edu"]}`)
	req, _ := http.NewRequest(http.MethodPost, "/timetables/class", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.GenerateClass(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "dept-csc", mockSvc.classReq.DepartmentID)
	assert.Equal(t, []string{"hod@example.edu"}, mockSvc.classReq.Notify)
}

func TestTimetableHandlerGenerateClassBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableOperatorMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/timetables/class", bytes.NewReader([]byte(`{"departmentId":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.GenerateClass(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGenerateExams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{}
	handler := &TimetableHandler{service: mockSvc}

	body := []byte(`{"departmentId":"dept-csc","startDate":"2026-01-05","endDate":"2026-01-16"}`)
	req, _ := http.NewRequest(http.MethodPost, "/timetables/exams", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.GenerateExams(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2026-01-05", mockSvc.examReq.StartDate)
	assert.Equal(t, "2026-01-16", mockSvc.examReq.EndDate)
}

func TestTimetableHandlerGetDefaultsToClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.GET("/timetables/:departmentId", handler.Get)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/dept-csc", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dept-csc", mockSvc.getDept)
	assert.Equal(t, models.TimetableKindClass, mockSvc.getKind)
}

func TestTimetableHandlerGetExamKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.GET("/timetables/:departmentId", handler.Get)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/dept-csc?kind=exam", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TimetableKindExam, mockSvc.getKind)
}

func TestTimetableHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{err: appErrors.Clone(appErrors.ErrNotFound, "timetable has not been generated")}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.GET("/timetables/:departmentId", handler.Get)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/dept-csc", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerCombinedSplitsIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.GET("/timetables/combined", handler.Combined)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/combined?departmentIds=dept-csc,dept-eee&kind=class", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"dept-csc", "dept-eee"}, mockSvc.combined.DepartmentIDs)
	assert.Equal(t, "class", mockSvc.combined.Kind)
}

func TestTimetableHandlerCombinedRepeatedParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.GET("/timetables/combined", handler.Combined)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/combined?departmentIds=dept-csc&departmentIds=dept-eee", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"dept-csc", "dept-eee"}, mockSvc.combined.DepartmentIDs)
}

func TestTimetableHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.DELETE("/timetables/:departmentId", handler.Delete)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/timetables/dept-csc?kind=exam", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "dept-csc", mockSvc.deleteDept)
	assert.Equal(t, models.TimetableKindExam, mockSvc.deleteKind)
}

func TestTimetableHandlerDeleteNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{err: appErrors.Clone(appErrors.ErrNotFound, "timetable has not been generated")}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.DELETE("/timetables/:departmentId", handler.Delete)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/timetables/dept-csc", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerMoveCourse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.PATCH("/timetables/:departmentId/courses/:courseId", handler.MoveCourse)

	body := []byte(`{"day":"Wednesday","startFrom":"14:00:00"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/timetables/dept-csc/courses/course-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dept-csc", mockSvc.moveDept)
	assert.Equal(t, "course-1", mockSvc.moveCourse)
	assert.Equal(t, "Wednesday", mockSvc.moveReq.Day)

	var envelope struct {
		Data dto.TimetableResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "dept-csc", envelope.Data.DepartmentID)
}

func TestTimetableHandlerMoveCourseConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableOperatorMock{err: appErrors.Clone(appErrors.ErrConflict, "time overlaps with Data Structures")}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.PATCH("/timetables/:departmentId/courses/:courseId", handler.MoveCourse)

	body := []byte(`{"day":"Tuesday","startFrom":"11:00:00"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/timetables/dept-csc/courses/course-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}
