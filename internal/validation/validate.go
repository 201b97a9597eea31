package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single validation failure, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors collects every failed rule for a request. Failures are reported in
// struct field order so clients can render all problems at once.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))

	for _, fe := range e {
		parts = append(parts, fe.Field+" "+fe.Message)
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// RegisterInput carries the raw registration fields. Validate normalizes
// fullName and email in place before checking rules; passwords are compared
// raw, byte for byte, and are never trimmed.
type RegisterInput struct {
	FullName        string `json:"fullName" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	PhoneNumber     string `json:"phoneNumber" validate:"required,e164"`
	Region          string `json:"region" validate:"omitempty,max=100"`
	Position        string `json:"position" validate:"required,oneof=prof etudiant"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CredentialValidator checks request fields against the portal's rules and
// reports every failure, not just the first.
type CredentialValidator struct {
	v *validator.Validate
}

func New() *CredentialValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	return &CredentialValidator{v: v}
}

// ValidateRegister normalizes in and returns all rule failures. A nil return
// means in is valid and normalized.
func (cv *CredentialValidator) ValidateRegister(in *RegisterInput) Errors {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = NormalizeEmail(in.Email)
	in.Region = strings.TrimSpace(in.Region)

	return cv.collect(cv.v.Struct(in))
}

func (cv *CredentialValidator) ValidateLogin(in *LoginInput) Errors {
	in.Email = NormalizeEmail(in.Email)

	return cv.collect(cv.v.Struct(in))
}

// NormalizeEmail is the single normalization used for comparison and
// storage: lowercase plus trim.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (cv *CredentialValidator) collect(err error) Errors {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors

	if !errors.As(err, &verrs) {
		// validator only returns ValidationErrors for struct inputs; anything
		// else is a programming error surfaced as a single failure.
		return Errors{{Field: "", Message: err.Error()}}
	}

	out := make(Errors, 0, len(verrs))

	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   jsonFieldName(fe.Field()),
			Message: message(fe),
		})
	}

	return out
}

// jsonFieldName lowers the first rune of the Go field name, which matches
// every json tag on the input structs.
func jsonFieldName(field string) string {
	if field == "" {
		return field
	}

	return strings.ToLower(field[:1]) + field[1:]
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "eqfield":
		return "does not match password"
	case "e164":
		return "must be a valid phone number"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		if fe.Param() != "" {
			return "failed " + fe.Tag() + " validation (" + fe.Param() + ")"
		}
		return "failed " + fe.Tag() + " validation"
	}
}
