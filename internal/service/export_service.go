package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/internal/scheduling"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/export"
	"github.com/noah-isme/uni-timetable-api/pkg/storage"
)

type timetableSource interface {
	Get(ctx context.Context, departmentID string, kind models.TimetableKind) (*dto.TimetableResponse, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type sheetRenderer interface {
	RenderSheets(title string, keys []string, sheets map[string]export.Dataset) ([]byte, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pageRenderer interface {
	RenderPages(title string, keys []string, pages map[string]export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       string
	ExpiresAt    time.Time
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// ExportService renders stored timetables into downloadable files.
type ExportService struct {
	timetables timetableSource
	storage    fileStorage
	signer     *storage.SignedURLSigner
	xlsx       sheetRenderer
	csv        csvRenderer
	pdf        pageRenderer
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(timetables timetableSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		timetables: timetables,
		storage:    store,
		signer:     signer,
		xlsx:       export.NewXLSXExporter(),
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		validator:  validator.New(),
		logger:     logger,
		cfg:        cfg,
	}
}

// SetSource installs the timetable reader after construction. The timetable
// service depends on notifications, which depend on exports, so the source is
// wired last.
func (s *ExportService) SetSource(timetables timetableSource) {
	s.timetables = timetables
}

// Export renders the stored timetable and returns a signed download link.
func (s *ExportService) Export(ctx context.Context, req dto.ExportTimetableRequest) (*ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	kind := models.TimetableKind(req.Kind)

	doc, err := s.timetables.Get(ctx, req.DepartmentID, kind)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s %s timetable", doc.Institution, kind)
	keys := orderedKeys(doc.Timetable, kind)
	sheets := buildSheets(doc.Timetable, keys)

	var payload []byte
	switch req.Format {
	case "xlsx":
		payload, err = s.xlsx.RenderSheets(title, keys, sheets)
	case "csv":
		payload, err = s.csv.Render(flattenSheets(keys, sheets))
	case "pdf":
		payload, err = s.pdf.RenderPages(title, keys, sheets)
	default:
		err = fmt.Errorf("unsupported format %s", req.Format)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}

	filename := buildExportFilename(req.DepartmentID, string(kind), req.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable export")
	}

	token, expiresAt, err := s.signer.Generate(uuid.NewString(), relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:       req.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ResolveDownload validates a token and opens the stored file.
func (s *ExportService) ResolveDownload(token string) (*ExportDownload, error) {
	_, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		ExpiresAt: expiresAt,
	}, nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
				if err != nil {
					s.logger.Sugar().Warnw("export cleanup failed", "error", err)
					continue
				}
				if len(deleted) > 0 {
					s.logger.Sugar().Infow("expired exports removed", "count", len(deleted))
				}
			}
		}
	}()
}

var entryHeaders = []string{"Code", "Title", "Venue", "Start", "End"}

func buildSheets(table models.Timetable, keys []string) map[string]export.Dataset {
	sheets := make(map[string]export.Dataset, len(keys))
	for _, key := range keys {
		entries := table[key]
		rows := make([]map[string]string, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, map[string]string{
				"Code":  entry.Code,
				"Title": entry.Name,
				"Venue": entry.Venue,
				"Start": entry.StartFrom,
				"End":   entry.EndsAt,
			})
		}
		sheets[key] = export.Dataset{Headers: entryHeaders, Rows: rows}
	}
	return sheets
}

func flattenSheets(keys []string, sheets map[string]export.Dataset) export.Dataset {
	headers := append([]string{"Day"}, entryHeaders...)
	var rows []map[string]string
	for _, key := range keys {
		for _, row := range sheets[key].Rows {
			flat := make(map[string]string, len(row)+1)
			for header, value := range row {
				flat[header] = value
			}
			flat["Day"] = key
			rows = append(rows, flat)
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// orderedKeys returns weekday order for class documents and chronological
// order for exam documents (whose keys are ISO dates).
func orderedKeys(table models.Timetable, kind models.TimetableKind) []string {
	if kind == models.TimetableKindClass {
		keys := make([]string, 0, len(scheduling.Weekdays))
		for _, day := range scheduling.Weekdays {
			if _, ok := table[day]; ok {
				keys = append(keys, day)
			}
		}
		return keys
	}
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func buildExportFilename(departmentID, kind, format string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return filepath.Join("timetables", fmt.Sprintf("%s_%s_%s.%s", sanitizeFilename(departmentID), kind, timestamp, format))
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
