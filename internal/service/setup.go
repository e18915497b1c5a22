package service

import (
	"github.com/wb-go/wbf/ginext"

	"accessos/internal/dto"
	"accessos/internal/model"
	"accessos/pkg/validator"
)

func (s *service) CreateZone(ctx *ginext.Context) {
	eventID := ctx.Param("id")

	var req dto.CreateZoneRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return
	}

	zone := &model.Zone{EventID: eventID, Name: req.Name, Capacity: req.Capacity}
	id, err := s.repo.CreateZone(ctx.Request.Context(), zone)
	if s.storeError(ctx, err) {
		return
	}
	zone.ID = id

	s.log.Info().Str("zone_id", id).Str("event_id", eventID).Msg("zone created")
	dto.SuccessCreatedResponse(ctx, zone)
}

func (s *service) GetZones(ctx *ginext.Context) {
	zones, err := s.repo.GetZonesByEventID(ctx.Request.Context(), ctx.Param("id"))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, zones)
}

func (s *service) DeleteZone(ctx *ginext.Context) {
	if err := s.repo.DeleteZone(ctx.Request.Context(), ctx.Param("id")); s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, nil)
}

func (s *service) CreateTier(ctx *ginext.Context) {
	eventID := ctx.Param("id")

	var req dto.CreateTierRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return
	}

	tier := &model.AccessTier{EventID: eventID, Name: req.Name}
	id, err := s.repo.CreateTier(ctx.Request.Context(), tier)
	if s.storeError(ctx, err) {
		return
	}
	tier.ID = id

	dto.SuccessCreatedResponse(ctx, tier)
}

func (s *service) GetTiers(ctx *ginext.Context) {
	tiers, err := s.repo.GetTiersByEventID(ctx.Request.Context(), ctx.Param("id"))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, model.OrderStandardTiers(tiers))
}

func (s *service) EnsureStandardTiers(ctx *ginext.Context) {
	tiers, err := s.repo.EnsureStandardTiers(ctx.Request.Context(), ctx.Param("id"))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, model.OrderStandardTiers(tiers))
}

func (s *service) DeleteTier(ctx *ginext.Context) {
	if err := s.repo.DeleteTier(ctx.Request.Context(), ctx.Param("id")); s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, nil)
}

func (s *service) GetTierZones(ctx *ginext.Context) {
	pairs, err := s.repo.GetTierZonesByEventID(ctx.Request.Context(), ctx.Param("id"))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, pairs)
}

func (s *service) ReplaceTierZones(ctx *ginext.Context) {
	tierID := ctx.Param("id")

	var req dto.ReplaceTierZonesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if err := s.repo.ReplaceTierZonesTx(ctx.Request.Context(), tierID, req.ZoneIDs); s.storeError(ctx, err) {
		return
	}

	s.log.Info().Str("tier_id", tierID).Int("zones", len(req.ZoneIDs)).Msg("tier zone mapping replaced")
	dto.SuccessResponse(ctx, nil)
}

func (s *service) CreateStakeholderGroup(ctx *ginext.Context) {
	eventID := ctx.Param("id")

	var req dto.CreateStakeholderGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return
	}

	role := model.StakeholderRole(req.RoleType)
	if !role.IsValid() {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Unknown stakeholder role")
		return
	}

	group := &model.StakeholderGroup{
		EventID:     eventID,
		Name:        req.Name,
		RoleType:    role,
		OwnerUserID: req.OwnerUserID,
	}
	id, err := s.repo.CreateStakeholderGroup(ctx.Request.Context(), group)
	if s.storeError(ctx, err) {
		return
	}
	group.ID = id

	dto.SuccessCreatedResponse(ctx, group)
}

func (s *service) GetStakeholderGroups(ctx *ginext.Context) {
	groups, err := s.repo.GetStakeholderGroupsByEventID(ctx.Request.Context(), ctx.Param("id"))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, groups)
}

func (s *service) CreateAllocation(ctx *ginext.Context) {
	groupID := ctx.Param("id")

	var req dto.CreateAllocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return
	}

	// The group must exist before it can hold quota.
	if _, err := s.repo.GetStakeholderGroupByID(ctx.Request.Context(), groupID); s.storeError(ctx, err) {
		return
	}

	alloc := &model.Allocation{
		StakeholderGroupID: groupID,
		AccessTierID:       req.AccessTierID,
		CapTotal:           req.CapTotal,
	}
	id, err := s.repo.CreateAllocation(ctx.Request.Context(), alloc)
	if s.storeError(ctx, err) {
		return
	}
	alloc.ID = id

	dto.SuccessCreatedResponse(ctx, alloc)
}

func (s *service) GetAllocations(ctx *ginext.Context) {
	allocations, err := s.repo.GetAllocationsByEventID(ctx.Request.Context(), ctx.Param("id"))
	if s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, allocations)
}

func (s *service) UpdateAllocation(ctx *ginext.Context) {
	allocationID := ctx.Param("id")

	var req dto.UpdateAllocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return
	}

	if err := s.repo.UpdateAllocationCap(ctx.Request.Context(), allocationID, req.CapTotal); s.storeError(ctx, err) {
		return
	}
	dto.SuccessResponse(ctx, nil)
}
