package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"accessos/internal/model"
)

func (r *repository) CreateGuest(ctx context.Context, g *model.Guest) (string, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	id := uuid.NewString()
	query := `
		INSERT INTO guests (id, event_id, stakeholder_group_id, access_tier_id,
		                    added_by_user_id, full_name, phone, notes, priority, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query,
		id, g.EventID, g.StakeholderGroupID, g.AccessTierID, g.AddedByUserID,
		g.FullName, g.Phone, g.Notes, g.Priority, model.GuestInvited,
	).Scan(&id); err != nil {
		return "", mapStoreErr("insert guest", err)
	}
	return id, nil
}

func (r *repository) GetGuestByID(ctx context.Context, id string) (*model.Guest, error) {
	var g model.Guest
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		query := `
			SELECT id, event_id, stakeholder_group_id, access_tier_id, added_by_user_id,
			       full_name, COALESCE(phone, ''), COALESCE(notes, ''), priority, state,
			       created_at, updated_at
			FROM guests
			WHERE id = $1
		`
		err := r.db.QueryRowContext(ctx, query, id).Scan(
			&g.ID, &g.EventID, &g.StakeholderGroupID, &g.AccessTierID, &g.AddedByUserID,
			&g.FullName, &g.Phone, &g.Notes, &g.Priority, &g.State,
			&g.CreatedAt, &g.UpdatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGuestNotFound
		}
		if err != nil {
			return mapStoreErr("select guest", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SearchGuests lists the event's guests newest-first. A non-blank query
// narrows the listing to case-insensitive substring matches over name, phone
// and notes.
func (r *repository) SearchGuests(ctx context.Context, eventID, query string) ([]model.Guest, error) {
	var guests []model.Guest
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		base := `
			SELECT id, event_id, stakeholder_group_id, access_tier_id, added_by_user_id,
			       full_name, COALESCE(phone, ''), COALESCE(notes, ''), priority, state,
			       created_at, updated_at
			FROM guests
			WHERE event_id = $1
		`
		var rows *sql.Rows
		var err error
		if q := strings.TrimSpace(query); q != "" {
			term := "%" + q + "%"
			rows, err = r.db.QueryContext(ctx, base+`
				AND (full_name ILIKE $2 OR phone ILIKE $2 OR notes ILIKE $2)
				ORDER BY created_at DESC
			`, eventID, term)
		} else {
			rows, err = r.db.QueryContext(ctx, base+`
				ORDER BY created_at DESC
			`, eventID)
		}
		if err != nil {
			return mapStoreErr("select guests", err)
		}
		defer rows.Close()

		guests = guests[:0]
		for rows.Next() {
			var g model.Guest
			if err := rows.Scan(
				&g.ID, &g.EventID, &g.StakeholderGroupID, &g.AccessTierID, &g.AddedByUserID,
				&g.FullName, &g.Phone, &g.Notes, &g.Priority, &g.State,
				&g.CreatedAt, &g.UpdatedAt,
			); err != nil {
				return mapStoreErr("scan guest", err)
			}
			guests = append(guests, g)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return guests, nil
}

// SetGuestState applies the transition from -> to only if the guest is still
// in the expected source state. The guard rides in the WHERE clause, so a
// concurrent transition loses cleanly instead of overwriting. Edge legality
// is the caller's concern: compensation paths deliberately walk a reverse
// edge the public state machine does not expose.
func (r *repository) SetGuestState(ctx context.Context, guestID string, from, to model.GuestState) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE guests
		SET state = $1, updated_at = NOW()
		WHERE id = $2 AND state = $3
	`, to, guestID, from)
	if err != nil {
		return mapStoreErr("update guest state", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapStoreErr("update guest state", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM guests WHERE id = $1)
	`, guestID).Scan(&exists); err != nil {
		return mapStoreErr("check guest", err)
	}
	if !exists {
		return ErrGuestNotFound
	}
	return ErrInvalidTransition
}

func (r *repository) DeleteGuest(ctx context.Context, id string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM guests WHERE id = $1`, id)
	if err != nil {
		return mapStoreErr("delete guest", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGuestNotFound
	}
	return nil
}
