package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"

	"accessos/internal/model"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	EventNotFound      = "EVENT_NOT_FOUND"
	ZoneNotFound       = "ZONE_NOT_FOUND"
	TierNotFound       = "TIER_NOT_FOUND"
	GroupNotFound      = "GROUP_NOT_FOUND"
	GuestNotFound      = "GUEST_NOT_FOUND"
	AllocationNotFound = "ALLOCATION_NOT_FOUND"

	QuotaExceeded       = "QUOTA_EXCEEDED"
	InvalidTransition   = "INVALID_TRANSITION"
	DuplicateZone       = "DUPLICATE_ZONE"
	DuplicateTier       = "DUPLICATE_TIER"
	DuplicateAllocation = "DUPLICATE_ALLOCATION"
	Unauthorized        = "UNAUTHORIZED"
)

type CreateEventRequest struct {
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name" validate:"required,max=255"`
	VenueName string    `json:"venue_name"`
	StartsAt  time.Time `json:"starts_at" validate:"required"`
	EndsAt    time.Time `json:"ends_at" validate:"required"`
	Capacity  int       `json:"capacity" validate:"gte=0"`
}

type CreateZoneRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Capacity int    `json:"capacity" validate:"gte=0"`
}

type CreateTierRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type ReplaceTierZonesRequest struct {
	ZoneIDs []string `json:"zone_ids"`
}

type CreateStakeholderGroupRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	RoleType    string `json:"role_type" validate:"required"`
	OwnerUserID string `json:"owner_user_id"`
}

type CreateAllocationRequest struct {
	AccessTierID string `json:"access_tier_id" validate:"required"`
	CapTotal     int    `json:"cap_total" validate:"positive"`
}

type UpdateAllocationRequest struct {
	CapTotal int `json:"cap_total" validate:"positive"`
}

type CreateGuestRequest struct {
	StakeholderGroupID string `json:"stakeholder_group_id"`
	AccessTierID       string `json:"access_tier_id"`
	FullName           string `json:"full_name" validate:"required,min=1,max=255"`
	Phone              string `json:"phone"`
	Notes              string `json:"notes"`
	Priority           int    `json:"priority" validate:"gte=0,lte=10"`
}

type CheckInRequest struct {
	Scanned bool `json:"scanned"`
}

// ScanEventMessage is published to RabbitMQ for every check-in attempt and for
// audit gaps detected by the processor.
type ScanEventMessage struct {
	EventID    string           `json:"event_id"`
	GuestID    string           `json:"guest_id"`
	GroupID    string           `json:"stakeholder_group_id,omitempty"`
	TierID     string           `json:"access_tier_id,omitempty"`
	Result     model.ScanResult `json:"result"`
	Reason     model.ScanReason `json:"reason"`
	ScannedBy  string           `json:"scanned_by_user_id"`
	AuditGap   bool             `json:"audit_gap,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

type EventDetailResponse struct {
	Event  model.Event              `json:"event"`
	Zones  []model.Zone             `json:"zones"`
	Tiers  []model.AccessTier       `json:"tiers"`
	Groups []model.StakeholderGroup `json:"groups"`
}

type CheckInResponse struct {
	Guest      model.Guest      `json:"guest"`
	Result     model.ScanResult `json:"result"`
	Reason     model.ScanReason `json:"reason"`
	CapUsed    int              `json:"cap_used"`
	CapTotal   int              `json:"cap_total"`
	CapRemains int              `json:"cap_remaining"`
}

type GuestDefaultsResponse struct {
	StakeholderGroupID string `json:"stakeholder_group_id"`
	AccessTierID       string `json:"access_tier_id"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func NotFoundError(c *ginext.Context, code, desc string) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func ConflictError(c *ginext.Context, code, desc string) {
	c.JSON(409, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func UnauthorizedError(c *ginext.Context) {
	c.JSON(401, Response{
		Status: "error",
		Error: &Error{
			Code: Unauthorized,
			Desc: "Missing or invalid actor identity",
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

// StoreUnavailableError signals a retryable backend failure, distinct from a
// definitive denial.
func StoreUnavailableError(c *ginext.Context) {
	c.JSON(503, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: "Backing store is unreachable, retry later",
		},
	})
}

func QuotaExceededError(c *ginext.Context) {
	ConflictError(c, QuotaExceeded, "Allocation quota exhausted for this tier")
}

func InvalidTransitionError(c *ginext.Context, desc string) {
	ConflictError(c, InvalidTransition, desc)
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
