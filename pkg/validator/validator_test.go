package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guestPayload struct {
	FullName string `validate:"required"`
	Priority int    `validate:"gte=0,lte=10"`
}

type allocationPayload struct {
	CapTotal int `validate:"positive"`
}

type groupPayload struct {
	RoleType string `validate:"required,role"`
}

func TestValidateRequired(t *testing.T) {
	err := Validate(context.Background(), guestPayload{Priority: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrFieldRequired)
	assert.Contains(t, err.Error(), "FullName")
}

func TestValidatePriorityBounds(t *testing.T) {
	require.NoError(t, Validate(context.Background(), guestPayload{FullName: "Ana", Priority: 0}))
	require.NoError(t, Validate(context.Background(), guestPayload{FullName: "Ana", Priority: 10}))

	err := Validate(context.Background(), guestPayload{FullName: "Ana", Priority: 11})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrFieldExceedsMaxVal)

	err = Validate(context.Background(), guestPayload{FullName: "Ana", Priority: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrFieldBelowMinVal)
}

func TestValidatePositive(t *testing.T) {
	require.NoError(t, Validate(context.Background(), allocationPayload{CapTotal: 1}))

	err := Validate(context.Background(), allocationPayload{CapTotal: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Value must be positive")

	err = Validate(context.Background(), allocationPayload{CapTotal: -5})
	require.Error(t, err)
}

func TestValidateRole(t *testing.T) {
	for _, role := range []string{"BOOKER", "TOUR_MANAGER", "PROMOTER", "VENUE_OPS", "STAGE_MANAGER"} {
		assert.NoError(t, Validate(context.Background(), groupPayload{RoleType: role}), role)
	}

	err := Validate(context.Background(), groupPayload{RoleType: "ADMIN"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown stakeholder role")
}
