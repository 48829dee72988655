package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var ErrEmailTaken = errors.New("email has already been taken")

// RegistrationInput is the raw form submitted to the registration endpoint.
type RegistrationInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,notblank,min=8,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `json:"password_confirmation"`
	PhoneNumber          string `json:"phone_number" validate:"required,digits"`

	// Malformed names fields that were submitted with a non-string type.
	// They fail with a type message regardless of their other rules.
	Malformed []string `json:"-"`
}

// Normalize trims the identifying fields and lowercases the email.
// Passwords are left untouched.
func (in RegistrationInput) Normalize() RegistrationInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	return in
}

// ValidationError lists every field that failed, keyed by its JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes ErrEmailTaken when the email failed on uniqueness.
func (e *ValidationError) Unwrap() error {
	if e.Fields["email"] == ErrEmailTaken.Error() {
		return ErrEmailTaken
	}
	return nil
}

func emailTakenError() *ValidationError {
	return &ValidationError{Fields: map[string]string{"email": ErrEmailTaken.Error()}}
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("digits", validateDigits)
	_ = validate.RegisterValidation("notblank", validators.NotBlank)
}

// validateDigits accepts ASCII digits only; signs, spaces and decimal points
// are rejected.
func validateDigits(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// EmailChecker reports whether an email is already registered.
type EmailChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// ValidateRegistration checks every rule on in, which must already be
// normalized, and returns a *ValidationError naming each failing field. The
// uniqueness lookup only runs when the email is otherwise valid. Any other
// error comes from the lookup itself.
func ValidateRegistration(ctx context.Context, users EmailChecker, in RegistrationInput) error {
	fields := map[string]string{}
	for _, name := range in.Malformed {
		fields[name] = typeMessage(name)
	}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate registration: %w", err)
		}
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; !seen {
				fields[fe.Field()] = fieldMessage(fe)
			}
		}
	}

	if _, bad := fields["email"]; !bad {
		taken, err := users.EmailExists(ctx, in.Email)
		if err != nil {
			return fmt.Errorf("check email uniqueness: %w", err)
		}
		if taken {
			fields["email"] = ErrEmailTaken.Error()
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")

	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "eqfield":
		return "password confirmation does not match"
	case "digits":
		return field + " must be numeric"
	default:
		return field + " is invalid"
	}
}

func typeMessage(name string) string {
	field := strings.ReplaceAll(name, "_", " ")
	if name == "phone_number" {
		return field + " must be numeric"
	}
	return field + " must be a string"
}
