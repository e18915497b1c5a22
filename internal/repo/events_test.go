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

func TestCreateEvent(t *testing.T) {
	r, mock := newMockRepo(t)

	starts := time.Now().Add(24 * time.Hour)
	ends := starts.Add(6 * time.Hour)
	mock.ExpectQuery(`INSERT INTO events`).
		WithArgs(sqlmock.AnyArg(), "org-1", "Boiler Room CDMX", "Foro Normandie", starts, ends, 800).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("event-1"))

	id, err := r.CreateEvent(context.Background(), &model.Event{
		OrgID:     "org-1",
		Name:      "Boiler Room CDMX",
		VenueName: "Foro Normandie",
		StartsAt:  starts,
		EndsAt:    ends,
		Capacity:  800,
	})
	require.NoError(t, err)
	assert.Equal(t, "event-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventByIDNotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, org_id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.GetEventByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventByIDRetriesOnOutage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := newMockRepoWithRetry(t, db, 2)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, org_id`).
		WithArgs("event-1").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectQuery(`SELECT id, org_id`).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "org_id", "name", "venue_name", "starts_at", "ends_at", "capacity", "created_at", "updated_at",
		}).AddRow("event-1", "org-1", "Boiler Room CDMX", "Foro Normandie", now, now.Add(time.Hour), 800, now, now))

	event, err := r.GetEventByID(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, "Boiler Room CDMX", event.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendScanLog(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO scan_logs`).
		WithArgs(sqlmock.AnyArg(), "event-1", "guest-1", model.ScanDenied, model.ReasonQuotaExceeded, "staff-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("log-1"))

	id, err := r.AppendScanLog(context.Background(), &model.ScanLog{
		EventID:         "event-1",
		GuestID:         "guest-1",
		Result:          model.ScanDenied,
		Reason:          model.ReasonQuotaExceeded,
		ScannedByUserID: "staff-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "log-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScanLogsByGuestID(t *testing.T) {
	r, mock := newMockRepo(t)

	now := time.Now()
	mock.ExpectQuery(`FROM scan_logs`).
		WithArgs("guest-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "event_id", "guest_id", "result", "reason", "scanned_by_user_id", "created_at",
		}).
			AddRow("log-2", "event-1", "guest-1", "ALLOWED", "MANUAL_CHECK_IN", "staff-1", now).
			AddRow("log-1", "event-1", "guest-1", "DENIED", "QUOTA_EXCEEDED", "staff-1", now.Add(-time.Minute)))

	logs, err := r.GetScanLogsByGuestID(context.Background(), "guest-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ScanAllowed, logs[0].Result)
	assert.Equal(t, model.ReasonQuotaExceeded, logs[1].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}
