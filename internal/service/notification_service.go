package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/pkg/jobs"
)

const jobTypeTimetableReady = "timetable.ready"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportRenderer interface {
	Export(ctx context.Context, req dto.ExportTimetableRequest) (*ExportResult, error)
}

type linkSender interface {
	SendTimetableReady(to []string, departmentName, kind, downloadURL string) error
}

type timetableReadyPayload struct {
	DepartmentID   string
	DepartmentName string
	Kind           string
	Recipients     []string
}

// NotificationService emails download links for freshly generated timetables.
// Delivery happens on the background queue so generation requests never wait
// on SMTP.
type NotificationService struct {
	queue    jobDispatcher
	exporter exportRenderer
	mailer   linkSender
	logger   *zap.Logger
}

// NewNotificationService wires notification dependencies.
func NewNotificationService(queue jobDispatcher, exporter exportRenderer, mailer linkSender, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		queue:    queue,
		exporter: exporter,
		mailer:   mailer,
		logger:   logger,
	}
}

// TimetableReady enqueues a notification job. Failures are logged rather than
// propagated so they never fail the generation call.
func (s *NotificationService) TimetableReady(ctx context.Context, department *models.Department, kind models.TimetableKind, recipients []string) {
	if s.queue == nil || department == nil || len(recipients) == 0 {
		return
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeTimetableReady,
		Payload: timetableReadyPayload{
			DepartmentID:   department.ID,
			DepartmentName: department.Name,
			Kind:           string(kind),
			Recipients:     recipients,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Sugar().Warnw("failed to enqueue timetable notification", "department_id", department.ID, "error", err)
	}
}

// Handle processes a queued notification: render the spreadsheet export and
// mail the signed link.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(timetableReadyPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}

	result, err := s.exporter.Export(ctx, dto.ExportTimetableRequest{
		DepartmentID: payload.DepartmentID,
		Kind:         payload.Kind,
		Format:       "xlsx",
	})
	if err != nil {
		return fmt.Errorf("render notification export: %w", err)
	}

	name := payload.DepartmentName
	if name == "" {
		name = payload.DepartmentID
	}
	if err := s.mailer.SendTimetableReady(payload.Recipients, name, payload.Kind, result.URL); err != nil {
		return fmt.Errorf("send notification mail: %w", err)
	}

	s.logger.Sugar().Infow("timetable notification sent",
		"department_id", payload.DepartmentID,
		"kind", payload.Kind,
		"recipients", len(payload.Recipients),
	)
	return nil
}
