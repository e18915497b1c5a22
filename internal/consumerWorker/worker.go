package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"accessos/internal/dto"
	"accessos/internal/mailer"
	"accessos/internal/model"
	"accessos/internal/rabbit"
	"accessos/internal/repo"
)

// Reader drains scan events off the queue and turns the ones worth human
// attention into stakeholder notifications: denied guests alert the owner of
// the group whose quota ran out, audit gaps are escalated to the process log.
type Reader struct {
	RMQ    *rabbit.Client
	repo   repo.Repository
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, repo repo.Repository) *Reader {
	return &Reader{
		RMQ:  rmq,
		repo: repo,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("scan event reader started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.ScanEventMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("Failed to unmarshal scan event: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Str("guest_id", msg.GuestID).
				Str("event_id", msg.EventID).
				Str("result", string(msg.Result)).
				Str("reason", string(msg.Reason)).
				Msg("scan event received")

			if msg.AuditGap {
				zlog.Logger.Error().
					Str("guest_id", msg.GuestID).
					Str("event_id", msg.EventID).
					Msg("AUDIT GAP reported by check-in processor")
				return nil
			}

			if msg.Result != model.ScanDenied || msg.Reason != model.ReasonQuotaExceeded {
				return nil
			}

			group, err := r.repo.GetStakeholderGroupByID(cctx, msg.GroupID)
			if err != nil {
				zlog.Logger.Error().
					Err(err).
					Str("group_id", msg.GroupID).
					Msg("Failed to get stakeholder group from DB in worker")
				return nil
			}
			if group.OwnerUserID == "" {
				zlog.Logger.Info().
					Str("group_id", group.ID).
					Msg("denied guest's group has no owner, skipping notification")
				return nil
			}

			guest, err := r.repo.GetGuestByID(cctx, msg.GuestID)
			if err != nil {
				zlog.Logger.Error().
					Err(err).
					Str("guest_id", msg.GuestID).
					Msg("Failed to get guest from DB in worker")
				return nil
			}

			if err := mailer.SendQuotaNotification(
				&zlog.Logger,
				group.Name,
				guest.FullName,
				group.OwnerUserID,
			); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Msg("Failed to send quota notification")
			} else {
				zlog.Logger.Info().
					Str("group_id", group.ID).
					Str("guest_id", guest.ID).
					Msg("quota notification sent to group owner")
			}

			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("scan event reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
