package validator

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator"

	"accessos/internal/model"
)

var global *validator.Validate

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrUnknownValidation  = "Unknown validation error"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("future", validateFutureDate)
	_ = v.RegisterValidation("positive", validatePositiveInt)
	_ = v.RegisterValidation("role", validateStakeholderRole)
	_ = v.RegisterValidation("guest_state", validateGuestState)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func validateFutureDate(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	return ok && t.After(time.Now())
}

func validatePositiveInt(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(int)
	return ok && val > 0
}

func validateStakeholderRole(fl validator.FieldLevel) bool {
	return model.StakeholderRole(fl.Field().String()).IsValid()
}

func validateGuestState(fl validator.FieldLevel) bool {
	return model.GuestState(fl.Field().String()).IsValid()
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return nil
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required":
		msg = ErrFieldRequired
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "lt", "lte":
		msg = ErrFieldExceedsMaxVal
	case "gt", "gte":
		msg = ErrFieldBelowMinVal
	case "future":
		msg = "Date must be in the future"
	case "positive":
		msg = "Value must be positive"
	case "role":
		msg = "Unknown stakeholder role"
	case "guest_state":
		msg = "Unknown guest state"
	default:
		msg = ErrUnknownValidation
	}
	return errors.New(msg + ": " + ve.Namespace())
}
