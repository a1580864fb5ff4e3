package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator envolve o go-playground/validator com as regras do formulário.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// ValidateCaptureLeadInput devolve um erro por campo inválido, na ordem da struct.
func (val *Validator) ValidateCaptureLeadInput(in CaptureLeadInput, requireEmail bool) []ValidationError {
	var out []ValidationError

	in.Name = strings.TrimSpace(in.Name)
	in.WhatsApp = strings.TrimSpace(in.WhatsApp)
	in.Email = strings.TrimSpace(in.Email)

	if err := val.v.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []ValidationError{{Field: "body", Message: err.Error()}}
		}
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{Field: fe.Field(), Message: messageFor(fe)})
		}
	}

	if requireEmail && in.Email == "" {
		out = append(out, ValidationError{Field: "email", Message: "is required"})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is invalid"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

// missingRequired indica se algum dos campos obrigatórios do formulário faltou.
func missingRequired(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Message == "is required" {
			return true
		}
	}
	return false
}
