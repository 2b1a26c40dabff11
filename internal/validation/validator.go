// Package validation checks service inputs with go-playground/validator and
// converts failures into VALIDATION domain errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.-]+$`)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
//
// Extra tags:
//
//	notblank  the string is non-empty after trimming whitespace
//	username  letters, digits and "_.-" only
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "":
			return fld.Name
		case "-":
			return ""
		default:
			return name
		}
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[fieldPath(e)] = friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

// fieldPath drops the top-level struct name: "SignupInput.email" -> "email".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "username":
		return "may only contain letters, digits, '_', '.' and '-'"
	case "oneof":
		return "must be one of: " + e.Param()
	case "min", "max", "len":
		return lengthMessage(e)
	default:
		return "is invalid"
	}
}

func lengthMessage(e validator.FieldError) string {
	unit := "characters"
	if k := e.Kind(); k == reflect.Slice || k == reflect.Array || k == reflect.Map {
		unit = "items"
	}
	switch e.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s %s", e.Param(), unit)
	case "max":
		return fmt.Sprintf("must not exceed %s %s", e.Param(), unit)
	default:
		return fmt.Sprintf("must be exactly %s %s", e.Param(), unit)
	}
}
