package service

import (
	"errors"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"accessos/internal/dto"
	"accessos/internal/model"
	"accessos/internal/repo"
	"accessos/pkg/validator"
)

func (s *service) CreateGuest(ctx *ginext.Context) {
	eventID := ctx.Param("id")

	var req dto.CreateGuestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "full_name must not be blank")
		return
	}

	rctx := ctx.Request.Context()
	groupID, tierID := req.StakeholderGroupID, req.AccessTierID

	// A guest added without an explicit group lands on the event's default
	// guest list, provisioned on first use.
	if groupID == "" || tierID == "" {
		defGroup, defTier, err := s.repo.EnsureGuestDefaultsTx(rctx, eventID, actorID(ctx), s.defaultCap)
		if s.storeError(ctx, err) {
			return
		}
		if groupID == "" {
			groupID = defGroup
		}
		if tierID == "" {
			tierID = defTier
		}
	}

	guest := &model.Guest{
		EventID:            eventID,
		StakeholderGroupID: groupID,
		AccessTierID:       tierID,
		AddedByUserID:      actorID(ctx),
		FullName:           strings.TrimSpace(req.FullName),
		Phone:              req.Phone,
		Notes:              req.Notes,
		Priority:           req.Priority,
		State:              model.GuestInvited,
	}

	// Invitation never consumes quota; the ledger is charged at check-in.
	id, err := s.repo.CreateGuest(rctx, guest)
	if s.storeError(ctx, err) {
		return
	}
	guest.ID = id

	s.log.Info().
		Str("guest_id", id).
		Str("event_id", eventID).
		Str("group_id", groupID).
		Msg("guest created")
	dto.SuccessCreatedResponse(ctx, guest)
}

func (s *service) SearchGuests(ctx *ginext.Context) {
	guests, err := s.repo.SearchGuests(ctx.Request.Context(), ctx.Param("id"), ctx.Query("q"))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, guests)
}

func (s *service) DeleteGuest(ctx *ginext.Context) {
	if err := s.repo.DeleteGuest(ctx.Request.Context(), ctx.Param("id")); s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, nil)
}

func (s *service) CheckInGuest(ctx *ginext.Context) {
	eventID := ctx.Param("id")
	guestID := ctx.Param("guestId")

	var req dto.CheckInRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
			return
		}
	}

	res, err := s.proc.CheckIn(ctx.Request.Context(), eventID, guestID, actorID(ctx), req.Scanned)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrQuotaExceeded):
			s.log.Info().
				Str("guest_id", guestID).
				Str("event_id", eventID).
				Msg("check-in denied: quota exceeded")
		case errors.Is(err, repo.ErrInvalidTransition):
			s.log.Info().
				Str("guest_id", guestID).
				Msg("check-in rejected: guest not in INVITED state")
		}
		s.storeError(ctx, err)
		return
	}

	resp := dto.CheckInResponse{
		Guest:  *res.Guest,
		Result: model.ScanAllowed,
		Reason: res.Reason,
	}
	if res.Allocation != nil {
		resp.CapUsed = res.Allocation.CapUsed
		resp.CapTotal = res.Allocation.CapTotal
		resp.CapRemains = res.Allocation.Remaining()
	}

	s.log.Info().
		Str("guest_id", guestID).
		Str("event_id", eventID).
		Str("scanned_by", actorID(ctx)).
		Msg("guest checked in")
	dto.SuccessResponse(ctx, resp)
}

func (s *service) DenyGuest(ctx *ginext.Context) {
	guest, err := s.proc.Deny(ctx.Request.Context(), ctx.Param("id"), actorID(ctx))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, guest)
}

func (s *service) RevokeGuest(ctx *ginext.Context) {
	guest, err := s.proc.Revoke(ctx.Request.Context(), ctx.Param("id"), actorID(ctx))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, guest)
}

func (s *service) EnsureGuestDefaults(ctx *ginext.Context) {
	groupID, tierID, err := s.repo.EnsureGuestDefaultsTx(ctx.Request.Context(), ctx.Param("id"), actorID(ctx), s.defaultCap)
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, dto.GuestDefaultsResponse{
		StakeholderGroupID: groupID,
		AccessTierID:       tierID,
	})
}

func (s *service) GetScanLogs(ctx *ginext.Context) {
	logs, err := s.repo.GetScanLogsByEventID(ctx.Request.Context(), ctx.Param("id"))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, logs)
}

func (s *service) GetGuestScanLogs(ctx *ginext.Context) {
	logs, err := s.repo.GetScanLogsByGuestID(ctx.Request.Context(), ctx.Param("id"))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, logs)
}
