package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
)

// RosterRepository reads the client roster and the synced calendar. Both are
// written by external sync jobs; the pipeline only reads them.
type RosterRepository struct {
	db *sql.DB
}

func NewRosterRepository(db *sql.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) ActiveClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, first_name, last_name, active
FROM clients
WHERE active = TRUE
ORDER BY last_name, first_name
`)
	if err != nil {
		return nil, fmt.Errorf("query active clients: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Active); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

func (r *RosterRepository) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, first_name, last_name, active
FROM clients
WHERE id = $1
`, id)

	var c domain.Client
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrClientNotFound, "get client", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}
	return &c, nil
}

func (r *RosterRepository) AppointmentsBetween(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, client_id, starts_at, attendees
FROM appointments
WHERE starts_at >= $1 AND starts_at < $2
ORDER BY starts_at
`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var appointments []domain.Appointment
	for rows.Next() {
		var a domain.Appointment
		var attendeesRaw []byte
		if err := rows.Scan(&a.ID, &a.ClientID, &a.StartsAt, &attendeesRaw); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		if err := json.Unmarshal(attendeesRaw, &a.Attendees); err != nil {
			return nil, fmt.Errorf("unmarshal attendees: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appointments, nil
}
