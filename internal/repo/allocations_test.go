package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"

	"accessos/internal/model"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return newMockRepoWithRetry(t, db, 1), mock
}

func newMockRepoWithRetry(t *testing.T, db *sql.DB, attempts int) Repository {
	t.Helper()

	log := zerolog.Nop()
	r, err := NewRepository(&dbpg.DB{Master: db}, &log, Options{
		StoreTimeout: time.Second,
		ReadRetry:    retry.Strategy{Attempts: attempts, Delay: time.Millisecond, Backoff: 1},
	})
	require.NoError(t, err)
	return r
}

func TestReserveAllocationUnit(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE allocations`).
		WithArgs("group-1", "tier-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.ReserveAllocationUnit(context.Background(), "group-1", "tier-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAllocationUnitQuotaExceeded(t *testing.T) {
	r, mock := newMockRepo(t)

	// Guard in the WHERE clause matched nothing, allocation exists: the cap
	// is spent.
	mock.ExpectExec(`UPDATE allocations`).
		WithArgs("group-1", "tier-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("group-1", "tier-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := r.ReserveAllocationUnit(context.Background(), "group-1", "tier-1")
	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAllocationUnitMissingAllocation(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE allocations`).
		WithArgs("group-1", "tier-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("group-1", "tier-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := r.ReserveAllocationUnit(context.Background(), "group-1", "tier-1")
	require.ErrorIs(t, err, ErrAllocationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAllocationUnitStoreUnavailable(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE allocations`).
		WithArgs("group-1", "tier-1").
		WillReturnError(context.DeadlineExceeded)

	err := r.ReserveAllocationUnit(context.Background(), "group-1", "tier-1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseAllocationUnit(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE allocations`).
		WithArgs("group-1", "tier-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.ReleaseAllocationUnit(context.Background(), "group-1", "tier-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseAllocationUnitMissingAllocation(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE allocations`).
		WithArgs("group-1", "tier-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.ReleaseAllocationUnit(context.Background(), "group-1", "tier-1")
	require.ErrorIs(t, err, ErrAllocationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAllocationDuplicate(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO allocations`).
		WithArgs(sqlmock.AnyArg(), "group-1", "tier-1", 50).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := r.CreateAllocation(context.Background(), &model.Allocation{
		StakeholderGroupID: "group-1",
		AccessTierID:       "tier-1",
		CapTotal:           50,
	})
	require.ErrorIs(t, err, ErrDuplicateAllocation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAllocationCapBelowUsed(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE allocations`).
		WithArgs(3, "alloc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alloc-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := r.UpdateAllocationCap(context.Background(), "alloc-1", 3)
	require.ErrorIs(t, err, ErrCapBelowUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAllocationCapNotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE allocations`).
		WithArgs(3, "alloc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alloc-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := r.UpdateAllocationCap(context.Background(), "alloc-1", 3)
	require.ErrorIs(t, err, ErrAllocationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAllocationCap(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE allocations`).
		WithArgs(25, "alloc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.UpdateAllocationCap(context.Background(), "alloc-1", 25)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAllocationIdempotent(t *testing.T) {
	r, mock := newMockRepo(t)

	// ON CONFLICT DO NOTHING: zero rows affected is still success.
	mock.ExpectExec(`INSERT INTO allocations`).
		WithArgs(sqlmock.AnyArg(), "group-1", "tier-1", 10000).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.EnsureAllocation(context.Background(), "group-1", "tier-1", 10000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllocationNotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, stakeholder_group_id`).
		WithArgs("group-1", "tier-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.GetAllocation(context.Background(), "group-1", "tier-1")
	require.ErrorIs(t, err, ErrAllocationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureGuestDefaultsTx(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO stakeholder_groups`).
		WithArgs(sqlmock.AnyArg(), "event-1", model.DefaultGuestListName, model.RoleVenueOps, "owner-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id FROM stakeholder_groups`).
		WithArgs("event-1", model.DefaultGuestListName).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("group-1"))
	for range model.StandardTierNames {
		mock.ExpectExec(`INSERT INTO access_tiers`).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectQuery(`SELECT id FROM access_tiers`).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tier-cover"))
	mock.ExpectExec(`INSERT INTO allocations`).
		WithArgs(sqlmock.AnyArg(), "group-1", "tier-cover", 10000).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	groupID, tierID, err := r.EnsureGuestDefaultsTx(context.Background(), "event-1", "owner-1", 10000)
	require.NoError(t, err)
	assert.Equal(t, "group-1", groupID)
	assert.Equal(t, "tier-cover", tierID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureGuestDefaultsTxRollsBackOnFailure(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO stakeholder_groups`).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, _, err := r.EnsureGuestDefaultsTx(context.Background(), "event-1", "owner-1", 10000)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
