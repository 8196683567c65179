package stubapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const allowedSegmentChars = "abcdefghijklmnopqrstuvwxyz0123456789_"

// exerciseParams are the path parameters of /api/exercises/{topic}/{name}
type exerciseParams struct {
	Topic string `validate:"required,segment"`
	Name  string `validate:"required,segment"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("segment", validSegment)
	return v
}

// validSegment accepts letters, digits and underscores, case-insensitively
func validSegment(fl validator.FieldLevel) bool {
	s := strings.ToLower(fl.Field().String())
	for _, r := range s {
		if !strings.ContainsRune(allowedSegmentChars, r) {
			return false
		}
	}
	return true
}

// validateParams returns a client-facing message for invalid parameters
func validateParams(v *validator.Validate, p exerciseParams) error {
	err := v.Struct(p)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}

	fe := ve[0]
	field := strings.ToLower(fe.Field())
	value := fmt.Sprint(fe.Value())
	if value == "" {
		return fmt.Errorf("Invalid %s: empty", field)
	}
	return fmt.Errorf("Invalid %s: %s", field, value)
}
