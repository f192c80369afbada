package api

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/banking/kyc-service/internal/domain"
)

// Validator adapts go-playground/validator to echo
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the KYC enum tags registered
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDocumentType(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("legalbasis", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseLegalBasis(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

// Validate checks struct tags and reports every failed field
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed validation '%s'", e.Field(), e.Tag()))
	}
	return &ValidationError{Message: strings.Join(msgs, "; ")}
}

// ValidationError is a rejected request shape
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
