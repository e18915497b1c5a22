package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuestStateCanTransition(t *testing.T) {
	cases := []struct {
		from, to GuestState
		want     bool
	}{
		{GuestInvited, GuestCheckedIn, true},
		{GuestInvited, GuestDenied, true},
		{GuestInvited, GuestRevoked, false},
		{GuestCheckedIn, GuestRevoked, true},
		{GuestCheckedIn, GuestInvited, false},
		{GuestCheckedIn, GuestDenied, false},
		{GuestDenied, GuestCheckedIn, false},
		{GuestDenied, GuestInvited, false},
		{GuestRevoked, GuestCheckedIn, false},
		{GuestRevoked, GuestInvited, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestGuestStateIsValid(t *testing.T) {
	for _, s := range []GuestState{GuestInvited, GuestCheckedIn, GuestDenied, GuestRevoked} {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, GuestState("PENDING").IsValid())
	assert.False(t, GuestState("").IsValid())
}

func TestStakeholderRoleIsValid(t *testing.T) {
	for _, r := range []StakeholderRole{RoleBooker, RoleTourManager, RolePromoter, RoleVenueOps, RoleStageManager} {
		assert.True(t, r.IsValid(), string(r))
	}
	assert.False(t, StakeholderRole("ADMIN").IsValid())
}

func TestAllocationRemaining(t *testing.T) {
	assert.Equal(t, 3, Allocation{CapTotal: 5, CapUsed: 2}.Remaining())
	assert.Equal(t, 0, Allocation{CapTotal: 5, CapUsed: 5}.Remaining())
	// cap_used above cap_total never yields negative headroom.
	assert.Equal(t, 0, Allocation{CapTotal: 5, CapUsed: 7}.Remaining())
}

func TestOrderStandardTiers(t *testing.T) {
	tiers := []AccessTier{
		{Name: "Empleados"},
		{Name: "Artist Friends"},
		{Name: "Cover"},
		{Name: "Backline"},
		{Name: "All Access"},
		{Name: "Cover + Mesa"},
	}

	got := OrderStandardTiers(tiers)

	names := make([]string, len(got))
	for i, tier := range got {
		names[i] = tier.Name
	}
	assert.Equal(t, []string{
		"All Access", "Cover", "Cover + Mesa", "Empleados",
		"Artist Friends", "Backline",
	}, names)

	// Input order untouched.
	assert.Equal(t, "Empleados", tiers[0].Name)
}
