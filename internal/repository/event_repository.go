package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// EventRepository loads institution-wide fixed events (chapel, sports,
// maintenance windows) that reserve time ahead of course placement.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListFixed returns every fixed event for the institution. Times are cast to
// text so they arrive as HH:MM:SS strings, and the one-off date is empty for
// recurring events.
func (r *EventRepository) ListFixed(ctx context.Context, institution string) ([]models.FixedEvent, error) {
	const query = `
SELECT id, name, venue,
       start_from::text AS start_from,
       ends_at::text AS ends_at,
       recurring,
       COALESCE(day, '') AS day,
       COALESCE(to_char(event_date, 'YYYY-MM-DD'), '') AS event_date,
       department_scope, level_scope
FROM fixed_events
WHERE institution = $1
ORDER BY name`
	var events []models.FixedEvent
	if err := r.db.SelectContext(ctx, &events, query, institution); err != nil {
		return nil, fmt.Errorf("list fixed events: %w", err)
	}
	return events, nil
}
