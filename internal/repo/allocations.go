package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"accessos/internal/model"
)

func (r *repository) CreateStakeholderGroup(ctx context.Context, g *model.StakeholderGroup) (string, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	id := uuid.NewString()
	query := `
		INSERT INTO stakeholder_groups (id, event_id, name, role_type, owner_user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query,
		id, g.EventID, g.Name, g.RoleType, nullable(g.OwnerUserID),
	).Scan(&id); err != nil {
		return "", mapStoreErr("insert stakeholder group", err)
	}
	return id, nil
}

func (r *repository) GetStakeholderGroupsByEventID(ctx context.Context, eventID string) ([]model.StakeholderGroup, error) {
	var groups []model.StakeholderGroup
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		query := `
			SELECT id, event_id, name, role_type, COALESCE(owner_user_id, ''), created_at
			FROM stakeholder_groups
			WHERE event_id = $1
			ORDER BY name ASC
		`
		rows, err := r.db.QueryContext(ctx, query, eventID)
		if err != nil {
			return mapStoreErr("select stakeholder groups", err)
		}
		defer rows.Close()

		groups = groups[:0]
		for rows.Next() {
			var g model.StakeholderGroup
			if err := rows.Scan(&g.ID, &g.EventID, &g.Name, &g.RoleType, &g.OwnerUserID, &g.CreatedAt); err != nil {
				return mapStoreErr("scan stakeholder group", err)
			}
			groups = append(groups, g)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repository) GetStakeholderGroupByID(ctx context.Context, id string) (*model.StakeholderGroup, error) {
	var g model.StakeholderGroup
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		query := `
			SELECT id, event_id, name, role_type, COALESCE(owner_user_id, ''), created_at
			FROM stakeholder_groups
			WHERE id = $1
		`
		err := r.db.QueryRowContext(ctx, query, id).Scan(
			&g.ID, &g.EventID, &g.Name, &g.RoleType, &g.OwnerUserID, &g.CreatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGroupNotFound
		}
		if err != nil {
			return mapStoreErr("select stakeholder group", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repository) GetAllocation(ctx context.Context, groupID, tierID string) (*model.Allocation, error) {
	var a model.Allocation
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		query := `
			SELECT id, stakeholder_group_id, access_tier_id, cap_total, cap_used, created_at, updated_at
			FROM allocations
			WHERE stakeholder_group_id = $1 AND access_tier_id = $2
		`
		err := r.db.QueryRowContext(ctx, query, groupID, tierID).Scan(
			&a.ID, &a.StakeholderGroupID, &a.AccessTierID, &a.CapTotal, &a.CapUsed,
			&a.CreatedAt, &a.UpdatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAllocationNotFound
		}
		if err != nil {
			return mapStoreErr("select allocation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) GetAllocationsByEventID(ctx context.Context, eventID string) ([]model.Allocation, error) {
	var allocations []model.Allocation
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		query := `
			SELECT a.id, a.stakeholder_group_id, a.access_tier_id, a.cap_total, a.cap_used, a.created_at, a.updated_at
			FROM allocations a
			JOIN stakeholder_groups g ON g.id = a.stakeholder_group_id
			WHERE g.event_id = $1
			ORDER BY a.created_at ASC
		`
		rows, err := r.db.QueryContext(ctx, query, eventID)
		if err != nil {
			return mapStoreErr("select allocations", err)
		}
		defer rows.Close()

		allocations = allocations[:0]
		for rows.Next() {
			var a model.Allocation
			if err := rows.Scan(
				&a.ID, &a.StakeholderGroupID, &a.AccessTierID, &a.CapTotal, &a.CapUsed,
				&a.CreatedAt, &a.UpdatedAt,
			); err != nil {
				return mapStoreErr("scan allocation", err)
			}
			allocations = append(allocations, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repository) CreateAllocation(ctx context.Context, a *model.Allocation) (string, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	id := uuid.NewString()
	query := `
		INSERT INTO allocations (id, stakeholder_group_id, access_tier_id, cap_total, cap_used)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query,
		id, a.StakeholderGroupID, a.AccessTierID, a.CapTotal,
	).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateAllocation
		}
		return "", mapStoreErr("insert allocation", err)
	}
	return id, nil
}

// UpdateAllocationCap changes cap_total; the new cap may never drop below the
// units already consumed, enforced in the same statement that applies it.
func (r *repository) UpdateAllocationCap(ctx context.Context, allocationID string, capTotal int) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE allocations
		SET cap_total = $1, updated_at = NOW()
		WHERE id = $2 AND cap_used <= $1
	`, capTotal, allocationID)
	if err != nil {
		return mapStoreErr("update allocation cap", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM allocations WHERE id = $1)
		`, allocationID).Scan(&exists); err != nil {
			return mapStoreErr("check allocation", err)
		}
		if !exists {
			return ErrAllocationNotFound
		}
		return ErrCapBelowUsed
	}
	return nil
}

// EnsureAllocation lazily provisions an allocation with the given cap if none
// exists for the (group, tier) pair. Idempotent under concurrent first use.
func (r *repository) EnsureAllocation(ctx context.Context, groupID, tierID string, defaultCap int) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO allocations (id, stakeholder_group_id, access_tier_id, cap_total, cap_used)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (stakeholder_group_id, access_tier_id) DO NOTHING
	`, uuid.NewString(), groupID, tierID, defaultCap)
	if err != nil {
		return mapStoreErr("ensure allocation", err)
	}
	return nil
}

// ReserveAllocationUnit is the single atomic check-and-increment the whole
// admission flow hangs on. The guard lives in the WHERE clause, so two
// concurrent reservations can never both win the last unit.
func (r *repository) ReserveAllocationUnit(ctx context.Context, groupID, tierID string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE allocations
		SET cap_used = cap_used + 1, updated_at = NOW()
		WHERE stakeholder_group_id = $1 AND access_tier_id = $2 AND cap_used < cap_total
	`, groupID, tierID)
	if err != nil {
		return mapStoreErr("reserve allocation unit", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapStoreErr("reserve allocation unit", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM allocations WHERE stakeholder_group_id = $1 AND access_tier_id = $2
		)
	`, groupID, tierID).Scan(&exists); err != nil {
		return mapStoreErr("check allocation", err)
	}
	if !exists {
		return ErrAllocationNotFound
	}
	return ErrQuotaExceeded
}

// ReleaseAllocationUnit reverses one reservation, floored at zero.
func (r *repository) ReleaseAllocationUnit(ctx context.Context, groupID, tierID string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE allocations
		SET cap_used = GREATEST(cap_used - 1, 0), updated_at = NOW()
		WHERE stakeholder_group_id = $1 AND access_tier_id = $2
	`, groupID, tierID)
	if err != nil {
		return mapStoreErr("release allocation unit", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAllocationNotFound
	}
	return nil
}

// EnsureGuestDefaultsTx provisions the default guest list group, the standard
// tier vocabulary, and a default allocation on the "Cover" tier, all inside
// one transaction. Every insert is conflict-tolerant, so concurrent first use
// converges on the same rows.
func (r *repository) EnsureGuestDefaultsTx(ctx context.Context, eventID, ownerUserID string, defaultCap int) (string, string, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return "", "", mapStoreErr("begin guest defaults", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stakeholder_groups (id, event_id, name, role_type, owner_user_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, name) DO NOTHING
	`, uuid.NewString(), eventID, model.DefaultGuestListName, model.RoleVenueOps, nullable(ownerUserID)); err != nil {
		_ = tx.Rollback()
		return "", "", mapStoreErr("ensure default group", err)
	}

	var groupID string
	if err := tx.QueryRowContext(ctx, `
		SELECT id FROM stakeholder_groups WHERE event_id = $1 AND name = $2
	`, eventID, model.DefaultGuestListName).Scan(&groupID); err != nil {
		_ = tx.Rollback()
		return "", "", mapStoreErr("select default group", err)
	}

	for _, name := range model.StandardTierNames {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO access_tiers (id, event_id, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (event_id, name) DO NOTHING
		`, uuid.NewString(), eventID, name); err != nil {
			_ = tx.Rollback()
			return "", "", mapStoreErr("ensure standard tiers", err)
		}
	}

	// The default guest list lives on the "Cover" tier.
	var tierID string
	if err := tx.QueryRowContext(ctx, `
		SELECT id FROM access_tiers WHERE event_id = $1 AND name = 'Cover'
	`, eventID).Scan(&tierID); err != nil {
		_ = tx.Rollback()
		return "", "", mapStoreErr("select default tier", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO allocations (id, stakeholder_group_id, access_tier_id, cap_total, cap_used)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (stakeholder_group_id, access_tier_id) DO NOTHING
	`, uuid.NewString(), groupID, tierID, defaultCap); err != nil {
		_ = tx.Rollback()
		return "", "", mapStoreErr("ensure default allocation", err)
	}

	if err := tx.Commit(); err != nil {
		return "", "", mapStoreErr("commit guest defaults", err)
	}
	return groupID, tierID, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
