package service

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"accessos/internal/checkin"
	"accessos/internal/dto"
	"accessos/internal/model"
	"accessos/internal/repo"
	"accessos/pkg/validator"
)

type Service interface {
	CreateEvent(ctx *ginext.Context)
	GetAllEvents(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)

	CreateZone(ctx *ginext.Context)
	GetZones(ctx *ginext.Context)
	DeleteZone(ctx *ginext.Context)

	CreateTier(ctx *ginext.Context)
	GetTiers(ctx *ginext.Context)
	EnsureStandardTiers(ctx *ginext.Context)
	DeleteTier(ctx *ginext.Context)
	GetTierZones(ctx *ginext.Context)
	ReplaceTierZones(ctx *ginext.Context)

	CreateStakeholderGroup(ctx *ginext.Context)
	GetStakeholderGroups(ctx *ginext.Context)
	CreateAllocation(ctx *ginext.Context)
	GetAllocations(ctx *ginext.Context)
	UpdateAllocation(ctx *ginext.Context)

	CreateGuest(ctx *ginext.Context)
	SearchGuests(ctx *ginext.Context)
	DeleteGuest(ctx *ginext.Context)
	CheckInGuest(ctx *ginext.Context)
	DenyGuest(ctx *ginext.Context)
	RevokeGuest(ctx *ginext.Context)
	EnsureGuestDefaults(ctx *ginext.Context)
	GetScanLogs(ctx *ginext.Context)
	GetGuestScanLogs(ctx *ginext.Context)
}

type service struct {
	repo       repo.Repository
	proc       *checkin.Processor
	log        *zerolog.Logger
	defaultCap int
}

func NewService(repository repo.Repository, proc *checkin.Processor, logger *zerolog.Logger, defaultCap int) Service {
	return &service{
		repo:       repository,
		proc:       proc,
		log:        logger,
		defaultCap: defaultCap,
	}
}

// actorID returns the authenticated user id placed on the context by the
// identity middleware.
func actorID(ctx *ginext.Context) string {
	return ctx.GetString("user_id")
}

// storeError maps sentinel repository errors onto the HTTP envelope. Returns
// true if the error was handled.
func (s *service) storeError(ctx *ginext.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, repo.ErrEventNotFound):
		dto.NotFoundError(ctx, dto.EventNotFound, "Event not found")
	case errors.Is(err, repo.ErrZoneNotFound):
		dto.NotFoundError(ctx, dto.ZoneNotFound, "Zone not found")
	case errors.Is(err, repo.ErrTierNotFound):
		dto.NotFoundError(ctx, dto.TierNotFound, "Access tier not found")
	case errors.Is(err, repo.ErrGroupNotFound):
		dto.NotFoundError(ctx, dto.GroupNotFound, "Stakeholder group not found")
	case errors.Is(err, repo.ErrGuestNotFound):
		dto.NotFoundError(ctx, dto.GuestNotFound, "Guest not found")
	case errors.Is(err, repo.ErrAllocationNotFound):
		dto.NotFoundError(ctx, dto.AllocationNotFound, "Allocation not found")
	case errors.Is(err, repo.ErrQuotaExceeded):
		dto.QuotaExceededError(ctx)
	case errors.Is(err, repo.ErrInvalidTransition):
		dto.InvalidTransitionError(ctx, "Guest state does not permit this transition")
	case errors.Is(err, repo.ErrDuplicateZone):
		dto.ConflictError(ctx, dto.DuplicateZone, "Zone name already used in this event")
	case errors.Is(err, repo.ErrDuplicateTier):
		dto.ConflictError(ctx, dto.DuplicateTier, "Tier name already used in this event")
	case errors.Is(err, repo.ErrDuplicateAllocation):
		dto.ConflictError(ctx, dto.DuplicateAllocation, "Allocation already exists for this group and tier")
	case errors.Is(err, repo.ErrCapBelowUsed):
		dto.BadResponseError(ctx, dto.FieldIncorrect, "cap_total cannot drop below cap_used")
	case errors.Is(err, repo.ErrStoreUnavailable):
		s.log.Warn().Err(err).Msg("backing store unavailable")
		dto.StoreUnavailableError(ctx)
	default:
		s.log.Error().Err(err).Msg("unexpected store error")
		dto.InternalServerError(ctx)
	}
	return true
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create event request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "ends_at must be after starts_at")
		return
	}

	event := &model.Event{
		OrgID:     req.OrgID,
		Name:      req.Name,
		VenueName: req.VenueName,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		Capacity:  req.Capacity,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	id, err := s.repo.CreateEvent(ctx.Request.Context(), event)
	if s.storeError(ctx, err) {
		return
	}
	event.ID = id

	s.log.Info().Str("event_id", id).Msg("event created successfully")
	dto.SuccessCreatedResponse(ctx, event)
}

func (s *service) GetAllEvents(ctx *ginext.Context) {
	events, err := s.repo.GetAllEvents(ctx.Request.Context())
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, events)
}

func (s *service) GetEvent(ctx *ginext.Context) {
	eventID := ctx.Param("id")
	rctx := ctx.Request.Context()

	event, err := s.repo.GetEventByID(rctx, eventID)
	if s.storeError(ctx, err) {
		return
	}

	zones, err := s.repo.GetZonesByEventID(rctx, eventID)
	if s.storeError(ctx, err) {
		return
	}
	tiers, err := s.repo.GetTiersByEventID(rctx, eventID)
	if s.storeError(ctx, err) {
		return
	}
	groups, err := s.repo.GetStakeholderGroupsByEventID(rctx, eventID)
	if s.storeError(ctx, err) {
		return
	}

	dto.SuccessResponse(ctx, dto.EventDetailResponse{
		Event:  *event,
		Zones:  zones,
		Tiers:  model.OrderStandardTiers(tiers),
		Groups: groups,
	})
}
