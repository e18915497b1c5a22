package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"accessos/internal/model"
)

func (r *repository) CreateZone(ctx context.Context, z *model.Zone) (string, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	id := uuid.NewString()
	query := `
		INSERT INTO zones (id, event_id, name, capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, id, z.EventID, z.Name, z.Capacity).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateZone
		}
		return "", mapStoreErr("insert zone", err)
	}
	return id, nil
}

func (r *repository) GetZonesByEventID(ctx context.Context, eventID string) ([]model.Zone, error) {
	var zones []model.Zone
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		query := `
			SELECT id, event_id, name, capacity, created_at
			FROM zones
			WHERE event_id = $1
			ORDER BY name ASC
		`
		rows, err := r.db.QueryContext(ctx, query, eventID)
		if err != nil {
			return mapStoreErr("select zones", err)
		}
		defer rows.Close()

		zones = zones[:0]
		for rows.Next() {
			var z model.Zone
			if err := rows.Scan(&z.ID, &z.EventID, &z.Name, &z.Capacity, &z.CreatedAt); err != nil {
				return mapStoreErr("scan zone", err)
			}
			zones = append(zones, z)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// DeleteZone removes the zone; tier_zone_map rows cascade via FK.
func (r *repository) DeleteZone(ctx context.Context, id string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return mapStoreErr("delete zone", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrZoneNotFound
	}
	return nil
}

func (r *repository) CreateTier(ctx context.Context, t *model.AccessTier) (string, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	id := uuid.NewString()
	query := `
		INSERT INTO access_tiers (id, event_id, name)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, id, t.EventID, t.Name).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateTier
		}
		return "", mapStoreErr("insert tier", err)
	}
	return id, nil
}

func (r *repository) GetTiersByEventID(ctx context.Context, eventID string) ([]model.AccessTier, error) {
	var tiers []model.AccessTier
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		query := `
			SELECT id, event_id, name, created_at
			FROM access_tiers
			WHERE event_id = $1
			ORDER BY name ASC
		`
		rows, err := r.db.QueryContext(ctx, query, eventID)
		if err != nil {
			return mapStoreErr("select tiers", err)
		}
		defer rows.Close()

		tiers = tiers[:0]
		for rows.Next() {
			var t model.AccessTier
			if err := rows.Scan(&t.ID, &t.EventID, &t.Name, &t.CreatedAt); err != nil {
				return mapStoreErr("scan tier", err)
			}
			tiers = append(tiers, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

// DeleteTier removes the tier; tier_zone_map rows cascade via FK. Allocations
// reference the tier with ON DELETE RESTRICT, so a tier holding quotas cannot
// be orphaned away.
func (r *repository) DeleteTier(ctx context.Context, id string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM access_tiers WHERE id = $1`, id)
	if err != nil {
		return mapStoreErr("delete tier", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTierNotFound
	}
	return nil
}

// EnsureStandardTiers provisions any missing tiers from the standard
// vocabulary for the event. Safe to call repeatedly and concurrently: inserts
// use ON CONFLICT DO NOTHING on (event_id, name).
func (r *repository) EnsureStandardTiers(ctx context.Context, eventID string) ([]model.AccessTier, error) {
	for _, name := range model.StandardTierNames {
		ctxIns, cancel := r.opCtx(ctx)
		_, err := r.db.ExecContext(ctxIns, `
			INSERT INTO access_tiers (id, event_id, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (event_id, name) DO NOTHING
		`, uuid.NewString(), eventID, name)
		cancel()
		if err != nil {
			return nil, mapStoreErr(fmt.Sprintf("ensure tier %q", name), err)
		}
	}
	return r.GetTiersByEventID(ctx, eventID)
}

func (r *repository) GetTierZonesByEventID(ctx context.Context, eventID string) ([]model.TierZonePair, error) {
	var pairs []model.TierZonePair
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		query := `
			SELECT m.access_tier_id, m.zone_id
			FROM tier_zone_map m
			JOIN access_tiers t ON t.id = m.access_tier_id
			WHERE t.event_id = $1
		`
		rows, err := r.db.QueryContext(ctx, query, eventID)
		if err != nil {
			return mapStoreErr("select tier zones", err)
		}
		defer rows.Close()

		pairs = pairs[:0]
		for rows.Next() {
			var p model.TierZonePair
			if err := rows.Scan(&p.AccessTierID, &p.ZoneID); err != nil {
				return mapStoreErr("scan tier zone", err)
			}
			pairs = append(pairs, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func (r *repository) GetAllowedZones(ctx context.Context, tierID string) ([]string, error) {
	var zoneIDs []string
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		rows, err := r.db.QueryContext(ctx, `
			SELECT zone_id FROM tier_zone_map WHERE access_tier_id = $1
		`, tierID)
		if err != nil {
			return mapStoreErr("select allowed zones", err)
		}
		defer rows.Close()

		zoneIDs = zoneIDs[:0]
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return mapStoreErr("scan allowed zone", err)
			}
			zoneIDs = append(zoneIDs, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return zoneIDs, nil
}

// ReplaceTierZonesTx swaps the full mapping set for a tier in one transaction
// so concurrent readers never observe the intermediate empty set.
func (r *repository) ReplaceTierZonesTx(ctx context.Context, tierID string, zoneIDs []string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return mapStoreErr("begin replace tier zones", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM access_tiers WHERE id = $1)
	`, tierID).Scan(&exists); err != nil {
		_ = tx.Rollback()
		return mapStoreErr("check tier", err)
	}
	if !exists {
		_ = tx.Rollback()
		return ErrTierNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM tier_zone_map WHERE access_tier_id = $1
	`, tierID); err != nil {
		_ = tx.Rollback()
		return mapStoreErr("clear tier zones", err)
	}

	for _, zoneID := range zoneIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tier_zone_map (access_tier_id, zone_id)
			VALUES ($1, $2)
			ON CONFLICT (access_tier_id, zone_id) DO NOTHING
		`, tierID, zoneID); err != nil {
			_ = tx.Rollback()
			return mapStoreErr("insert tier zone", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return mapStoreErr("commit replace tier zones", err)
	}
	return nil
}
