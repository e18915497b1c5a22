package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accessos/internal/model"
)

func TestCreateZoneDuplicate(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO zones`).
		WithArgs(sqlmock.AnyArg(), "event-1", "Backstage", 40).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := r.CreateZone(context.Background(), &model.Zone{
		EventID:  "event-1",
		Name:     "Backstage",
		Capacity: 40,
	})
	require.ErrorIs(t, err, ErrDuplicateZone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureStandardTiers(t *testing.T) {
	r, mock := newMockRepo(t)

	for _, name := range model.StandardTierNames {
		mock.ExpectExec(`INSERT INTO access_tiers`).
			WithArgs(sqlmock.AnyArg(), "event-1", name).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	now := time.Now()
	mock.ExpectQuery(`SELECT id, event_id, name, created_at`).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "name", "created_at"}).
			AddRow("tier-1", "event-1", "All Access", now).
			AddRow("tier-2", "event-1", "Cover", now).
			AddRow("tier-3", "event-1", "Cover + Mesa", now).
			AddRow("tier-4", "event-1", "Empleados", now))

	tiers, err := r.EnsureStandardTiers(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, tiers, len(model.StandardTierNames))
	assert.Equal(t, "All Access", tiers[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTierZonesTx(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("tier-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`DELETE FROM tier_zone_map`).
		WithArgs("tier-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO tier_zone_map`).
		WithArgs("tier-1", "zone-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO tier_zone_map`).
		WithArgs("tier-1", "zone-b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := r.ReplaceTierZonesTx(context.Background(), "tier-1", []string{"zone-a", "zone-b"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTierZonesTxMissingTier(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := r.ReplaceTierZonesTx(context.Background(), "missing", []string{"zone-a"})
	require.ErrorIs(t, err, ErrTierNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTierZonesTxRollsBackOnInsertError(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("tier-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`DELETE FROM tier_zone_map`).
		WithArgs("tier-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO tier_zone_map`).
		WithArgs("tier-1", "zone-a").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := r.ReplaceTierZonesTx(context.Background(), "tier-1", []string{"zone-a"})
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteZoneNotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM zones`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.DeleteZone(context.Background(), "missing")
	require.ErrorIs(t, err, ErrZoneNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
