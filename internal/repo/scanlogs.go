package repo

import (
	"context"

	"github.com/google/uuid"

	"accessos/internal/model"
)

// AppendScanLog records one check-in attempt. The table is append-only: no
// update or delete statement for scan_logs exists anywhere in this codebase.
func (r *repository) AppendScanLog(ctx context.Context, entry *model.ScanLog) (string, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	id := uuid.NewString()
	query := `
		INSERT INTO scan_logs (id, event_id, guest_id, result, reason, scanned_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query,
		id, entry.EventID, entry.GuestID, entry.Result, entry.Reason, entry.ScannedByUserID,
	).Scan(&id); err != nil {
		return "", mapStoreErr("insert scan log", err)
	}
	return id, nil
}

func (r *repository) GetScanLogsByEventID(ctx context.Context, eventID string) ([]model.ScanLog, error) {
	return r.scanLogsBy(ctx, `
		SELECT id, event_id, guest_id, result, reason, scanned_by_user_id, created_at
		FROM scan_logs
		WHERE event_id = $1
		ORDER BY created_at DESC
	`, eventID)
}

func (r *repository) GetScanLogsByGuestID(ctx context.Context, guestID string) ([]model.ScanLog, error) {
	return r.scanLogsBy(ctx, `
		SELECT id, event_id, guest_id, result, reason, scanned_by_user_id, created_at
		FROM scan_logs
		WHERE guest_id = $1
		ORDER BY created_at DESC
	`, guestID)
}

func (r *repository) scanLogsBy(ctx context.Context, query, arg string) ([]model.ScanLog, error) {
	var logs []model.ScanLog
	err := r.readWithRetry(func() error {
		ctx, cancel := r.opCtx(ctx)
		defer cancel()

		rows, err := r.db.QueryContext(ctx, query, arg)
		if err != nil {
			return mapStoreErr("select scan logs", err)
		}
		defer rows.Close()

		logs = logs[:0]
		for rows.Next() {
			var l model.ScanLog
			if err := rows.Scan(
				&l.ID, &l.EventID, &l.GuestID, &l.Result, &l.Reason, &l.ScannedByUserID, &l.CreatedAt,
			); err != nil {
				return mapStoreErr("scan scan log", err)
			}
			logs = append(logs, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}
