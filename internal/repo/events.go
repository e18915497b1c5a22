package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"accessos/internal/model"
)

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) (string, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	id := uuid.NewString()
	query := `
		INSERT INTO events (id, org_id, name, venue_name, starts_at, ends_at, capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query,
		id, e.OrgID, e.Name, e.VenueName, e.StartsAt, e.EndsAt, e.Capacity,
	).Scan(&id); err != nil {
		return "", mapStoreErr("insert event", err)
	}
	return id, nil
}

func (r *repository) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		query := `
			SELECT id, org_id, name, venue_name, starts_at, ends_at, capacity, created_at, updated_at
			FROM events WHERE id = $1
		`
		err := r.db.QueryRowContext(ctx, query, id).Scan(
			&e.ID, &e.OrgID, &e.Name, &e.VenueName, &e.StartsAt, &e.EndsAt,
			&e.Capacity, &e.CreatedAt, &e.UpdatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		if err != nil {
			return mapStoreErr("select event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) GetAllEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		query := `
			SELECT id, org_id, name, venue_name, starts_at, ends_at, capacity, created_at, updated_at
			FROM events
			ORDER BY starts_at DESC
			LIMIT 30
		`
		rows, err := r.db.QueryContext(ctx, query)
		if err != nil {
			return mapStoreErr("select events", err)
		}
		defer rows.Close()

		events = events[:0]
		for rows.Next() {
			var e model.Event
			if err := rows.Scan(
				&e.ID, &e.OrgID, &e.Name, &e.VenueName, &e.StartsAt, &e.EndsAt,
				&e.Capacity, &e.CreatedAt, &e.UpdatedAt,
			); err != nil {
				return mapStoreErr("scan event", err)
			}
			events = append(events, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
