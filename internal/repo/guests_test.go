package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accessos/internal/model"
)

var guestColumns = []string{
	"id", "event_id", "stakeholder_group_id", "access_tier_id", "added_by_user_id",
	"full_name", "phone", "notes", "priority", "state", "created_at", "updated_at",
}

func guestRow(rows *sqlmock.Rows, id, name string, state model.GuestState, createdAt time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, "event-1", "group-1", "tier-1", "booker-1",
		name, "", "", 0, state, createdAt, createdAt,
	)
}

func TestCreateGuest(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO guests`).
		WithArgs(
			sqlmock.AnyArg(), "event-1", "group-1", "tier-1", "booker-1",
			"Ana Torres", "+52 555 0100", "plus one", 5, model.GuestInvited,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("guest-1"))

	id, err := r.CreateGuest(context.Background(), &model.Guest{
		EventID:            "event-1",
		StakeholderGroupID: "group-1",
		AccessTierID:       "tier-1",
		AddedByUserID:      "booker-1",
		FullName:           "Ana Torres",
		Phone:              "+52 555 0100",
		Notes:              "plus one",
		Priority:           5,
	})
	require.NoError(t, err)
	assert.Equal(t, "guest-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGuestByIDNotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, event_id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(guestColumns))

	_, err := r.GetGuestByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrGuestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchGuestsWithQuery(t *testing.T) {
	r, mock := newMockRepo(t)

	now := time.Now()
	rows := sqlmock.NewRows(guestColumns)
	guestRow(rows, "guest-2", "Ana Torres", model.GuestInvited, now)
	guestRow(rows, "guest-1", "Anabel Ruiz", model.GuestCheckedIn, now.Add(-time.Hour))

	mock.ExpectQuery(`ILIKE`).
		WithArgs("event-1", "%ana%").
		WillReturnRows(rows)

	guests, err := r.SearchGuests(context.Background(), "event-1", "  ana ")
	require.NoError(t, err)
	require.Len(t, guests, 2)
	assert.Equal(t, "guest-2", guests[0].ID)
	assert.Equal(t, "guest-1", guests[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchGuestsBlankQueryListsAll(t *testing.T) {
	r, mock := newMockRepo(t)

	rows := sqlmock.NewRows(guestColumns)
	guestRow(rows, "guest-1", "Ana Torres", model.GuestInvited, time.Now())

	// A blank query lists everything; only the event id is bound.
	mock.ExpectQuery(`FROM guests`).
		WithArgs("event-1").
		WillReturnRows(rows)

	guests, err := r.SearchGuests(context.Background(), "event-1", "   ")
	require.NoError(t, err)
	assert.Len(t, guests, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetGuestState(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE guests`).
		WithArgs(model.GuestCheckedIn, "guest-1", model.GuestInvited).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.SetGuestState(context.Background(), "guest-1", model.GuestInvited, model.GuestCheckedIn)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetGuestStateStaleSource(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE guests`).
		WithArgs(model.GuestCheckedIn, "guest-1", model.GuestInvited).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("guest-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := r.SetGuestState(context.Background(), "guest-1", model.GuestInvited, model.GuestCheckedIn)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetGuestStateMissingGuest(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE guests`).
		WithArgs(model.GuestCheckedIn, "guest-1", model.GuestInvited).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("guest-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := r.SetGuestState(context.Background(), "guest-1", model.GuestInvited, model.GuestCheckedIn)
	require.ErrorIs(t, err, ErrGuestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGuestNotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM guests`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.DeleteGuest(context.Background(), "missing")
	require.ErrorIs(t, err, ErrGuestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
