package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type exporterMock struct {
	captured dto.ExportTimetableRequest
	result   *service.ExportResult
	download *service.ExportDownload
	err      error
}

func (m *exporterMock) Export(ctx context.Context, req dto.ExportTimetableRequest) (*service.ExportResult, error) {
	m.captured = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *exporterMock) ResolveDownload(token string) (*service.ExportDownload, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.download, nil
}

func TestExportHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exporterMock{result: &service.ExportResult{
		URL:       "/api/v1/exports/token-123",
		Format:    "xlsx",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	handler := &ExportHandler{service: mockSvc}

	body := []byte(`{"departmentId":"dept-csc","kind":"class","format":"xlsx"}`)
	req, _ := http.NewRequest(http.MethodPost, "/exports", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "dept-csc", mockSvc.captured.DepartmentID)
	assert.Contains(t, w.Body.String(), "/api/v1/exports/token-123")
}

func TestExportHandlerCreateBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ExportHandler{service: &exporterMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/exports", bytes.NewReader([]byte(`{"kind":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	path := filepath.Join(dir, "dept-csc_class.csv")
	require.NoError(t, os.WriteFile(path, []byte("Day,Code\nMonday,CSC101\n"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	mockSvc := &exporterMock{download: &service.ExportDownload{
		File:      file,
		Filename:  "dept-csc_class.csv",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	handler := &ExportHandler{service: mockSvc}

	router := gin.New()
	router.GET("/exports/:token", handler.Download)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exports/token-123", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dept-csc_class.csv")
	assert.Contains(t, w.Body.String(), "CSC101")
}

func TestExportHandlerDownloadInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exporterMock{err: appErrors.Clone(appErrors.ErrNotFound, "invalid or expired download token")}
	handler := &ExportHandler{service: mockSvc}

	router := gin.New()
	router.GET("/exports/:token", handler.Download)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exports/bad-token", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}
