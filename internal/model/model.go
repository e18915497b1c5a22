package model

import (
	"sort"
	"time"
)

type Event struct {
	ID        string    `db:"id" json:"id"`
	OrgID     string    `db:"org_id,omitempty" json:"org_id,omitempty"`
	Name      string    `db:"name" json:"name"`
	VenueName string    `db:"venue_name,omitempty" json:"venue_name,omitempty"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Zone struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type AccessTier struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TierZonePair maps one access tier to one zone it may enter.
type TierZonePair struct {
	AccessTierID string `db:"access_tier_id" json:"access_tier_id"`
	ZoneID       string `db:"zone_id" json:"zone_id"`
}

type StakeholderGroup struct {
	ID          string          `db:"id" json:"id"`
	EventID     string          `db:"event_id" json:"event_id"`
	Name        string          `db:"name" json:"name"`
	RoleType    StakeholderRole `db:"role_type" json:"role_type"`
	OwnerUserID string          `db:"owner_user_id,omitempty" json:"owner_user_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type Allocation struct {
	ID                 string    `db:"id" json:"id"`
	StakeholderGroupID string    `db:"stakeholder_group_id" json:"stakeholder_group_id"`
	AccessTierID       string    `db:"access_tier_id" json:"access_tier_id"`
	CapTotal           int       `db:"cap_total" json:"cap_total"`
	CapUsed            int       `db:"cap_used" json:"cap_used"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Remaining reports how many quota units the allocation still has.
func (a Allocation) Remaining() int {
	if a.CapUsed >= a.CapTotal {
		return 0
	}
	return a.CapTotal - a.CapUsed
}

type Guest struct {
	ID                 string     `db:"id" json:"id"`
	EventID            string     `db:"event_id" json:"event_id"`
	StakeholderGroupID string     `db:"stakeholder_group_id" json:"stakeholder_group_id"`
	AccessTierID       string     `db:"access_tier_id" json:"access_tier_id"`
	AddedByUserID      string     `db:"added_by_user_id" json:"added_by_user_id"`
	FullName           string     `db:"full_name" json:"full_name"`
	Phone              string     `db:"phone,omitempty" json:"phone,omitempty"`
	Notes              string     `db:"notes,omitempty" json:"notes,omitempty"`
	Priority           int        `db:"priority" json:"priority"`
	State              GuestState `db:"state" json:"state"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

type ScanLog struct {
	ID              string     `db:"id" json:"id"`
	EventID         string     `db:"event_id" json:"event_id"`
	GuestID         string     `db:"guest_id" json:"guest_id"`
	Result          ScanResult `db:"result" json:"result"`
	Reason          ScanReason `db:"reason" json:"reason"`
	ScannedByUserID string     `db:"scanned_by_user_id" json:"scanned_by_user_id"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

type GuestState string

const (
	GuestInvited   GuestState = "INVITED"
	GuestCheckedIn GuestState = "CHECKED_IN"
	GuestDenied    GuestState = "DENIED"
	GuestRevoked   GuestState = "REVOKED"
)

func (s GuestState) IsValid() bool {
	switch s {
	case GuestInvited, GuestCheckedIn, GuestDenied, GuestRevoked:
		return true
	}
	return false
}

// CanTransition reports whether a guest may move from s to next.
// Legal edges: INVITED -> CHECKED_IN, INVITED -> DENIED, CHECKED_IN -> REVOKED.
// DENIED and REVOKED are terminal.
func (s GuestState) CanTransition(next GuestState) bool {
	switch s {
	case GuestInvited:
		return next == GuestCheckedIn || next == GuestDenied
	case GuestCheckedIn:
		return next == GuestRevoked
	}
	return false
}

type StakeholderRole string

const (
	RoleBooker       StakeholderRole = "BOOKER"
	RoleTourManager  StakeholderRole = "TOUR_MANAGER"
	RolePromoter     StakeholderRole = "PROMOTER"
	RoleVenueOps     StakeholderRole = "VENUE_OPS"
	RoleStageManager StakeholderRole = "STAGE_MANAGER"
)

func (r StakeholderRole) IsValid() bool {
	switch r {
	case RoleBooker, RoleTourManager, RolePromoter, RoleVenueOps, RoleStageManager:
		return true
	}
	return false
}

type ScanResult string

const (
	ScanAllowed ScanResult = "ALLOWED"
	ScanDenied  ScanResult = "DENIED"
)

type ScanReason string

const (
	ReasonManualCheckIn ScanReason = "MANUAL_CHECK_IN"
	ReasonScanned       ScanReason = "SCANNED"
	ReasonQuotaExceeded ScanReason = "QUOTA_EXCEEDED"
	ReasonInvalidState  ScanReason = "INVALID_STATE"
	ReasonStaffDenied   ScanReason = "STAFF_DENIED"
)

// DefaultGuestListName is the stakeholder group auto-provisioned for ad-hoc
// guests added outside any explicit group.
const DefaultGuestListName = "DEFAULT_GUEST_LIST"

// StandardTierNames is the tier vocabulary provisioned for every event.
var StandardTierNames = []string{"All Access", "Cover", "Cover + Mesa", "Empleados"}

// OrderStandardTiers sorts tiers into display order: standard vocabulary first
// in its fixed order, then any custom tiers lexicographically.
func OrderStandardTiers(tiers []AccessTier) []AccessTier {
	rank := make(map[string]int, len(StandardTierNames))
	for i, name := range StandardTierNames {
		rank[name] = i
	}
	out := make([]AccessTier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iOK := rank[out[i].Name]
		rj, jOK := rank[out[j].Name]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		case jOK:
			return false
		}
		return out[i].Name < out[j].Name
	})
	return out
}
