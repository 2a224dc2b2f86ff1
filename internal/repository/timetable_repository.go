package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// TimetableRepository persists generated timetable documents. One row exists
// per (department, kind) pair; regenerating overwrites the previous document.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Upsert stores a timetable document, replacing any existing row for the
// same department and kind.
func (r *TimetableRepository) Upsert(ctx context.Context, record *models.TimetableRecord) error {
	if record == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if record.DepartmentID == "" {
		return fmt.Errorf("department_id is required")
	}
	if !record.Kind.Valid() {
		return fmt.Errorf("unknown timetable kind %q", record.Kind)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `
INSERT INTO timetables (id, department_id, kind, institution, doc, created_at, updated_at)
VALUES (:id, :department_id, :kind, :institution, :doc, :created_at, :updated_at)
ON CONFLICT (department_id, kind)
DO UPDATE SET doc = EXCLUDED.doc, institution = EXCLUDED.institution, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert timetable: %w", err)
	}
	return nil
}

// Get loads the stored timetable document for a department and kind.
// Returns sql.ErrNoRows unchanged when nothing has been generated yet.
func (r *TimetableRepository) Get(ctx context.Context, departmentID string, kind models.TimetableKind) (*models.TimetableRecord, error) {
	const query = `
SELECT id, department_id, kind, institution, doc, created_at, updated_at
FROM timetables WHERE department_id = $1 AND kind = $2`
	var record models.TimetableRecord
	if err := r.db.GetContext(ctx, &record, query, departmentID, kind); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByDepartments loads documents of one kind for several departments at
// once, used when combining timetables.
func (r *TimetableRepository) ListByDepartments(ctx context.Context, departmentIDs []string, kind models.TimetableKind) ([]models.TimetableRecord, error) {
	if len(departmentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
SELECT id, department_id, kind, institution, doc, created_at, updated_at
FROM timetables WHERE department_id IN (?) AND kind = ?`, departmentIDs, kind)
	if err != nil {
		return nil, fmt.Errorf("build timetable list query: %w", err)
	}
	query = r.db.Rebind(query)

	var records []models.TimetableRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return records, nil
}

// Delete removes a stored timetable document.
func (r *TimetableRepository) Delete(ctx context.Context, departmentID string, kind models.TimetableKind) error {
	const query = `DELETE FROM timetables WHERE department_id = $1 AND kind = $2`
	if _, err := r.db.ExecContext(ctx, query, departmentID, kind); err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	return nil
}
