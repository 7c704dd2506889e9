package models

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

var validate = validator.New()

// Validate checks struct tags on v and returns one entry per failed field.
func Validate(v any) []ValidationError {
	errs := []ValidationError{}
	err := validate.Struct(v)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return append(errs, ValidationError{Description: err.Error()})
	}
	for _, fe := range verrs {
		errs = append(errs, ValidationError{Field: fe.Field(), Description: describe(fe)})
	}
	return errs
}

// ValidateProduct applies the tag rules plus the checks tags cannot express.
func ValidateProduct(p Product) []ValidationError {
	errs := Validate(p)
	if strings.TrimSpace(p.Name) == "" && !hasField(errs, "Name") {
		errs = append(errs, ValidationError{Field: "Name", Description: "Name is required"})
	}
	for _, e := range CheckCoercible(p) {
		if !hasField(errs, e.Field) {
			errs = append(errs, e)
		}
	}
	return errs
}

// CheckCoercible reports only the fields that cannot be turned into a request
// payload at all. Required-field rules are left to the server.
func CheckCoercible(p Product) []ValidationError {
	errs := []ValidationError{}
	if p.MeasureType != "" && !p.MeasureType.Valid() {
		errs = append(errs, ValidationError{Field: "MeasureType", Description: "MeasureType must be one of: l ml kg g un"})
	}
	if p.MeasureValue != "" {
		if _, ok := p.MeasureValue.Decimal(); !ok {
			errs = append(errs, ValidationError{Field: "MeasureValue", Description: "Measure value must be a number"})
		}
	}
	return errs
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "gte":
		return fe.Field() + " cannot be negative"
	}
	return fe.Field() + " is invalid"
}

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
