package service

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	apperrors "formini/internal/errors"
	"formini/internal/model"
)

// MinPasswordLength is the minimum accepted password length, in characters.
const MinPasswordLength = 8

var (
	emailShape = regexp.MustCompile(`^.+@.+\..+$`)
	validate   = newValidator()
)

// registration mirrors RegisterInput with validation rules; field names in errors come
// from the json tags so they match the request body.
type registration struct {
	FirstName string     `json:"first_name" validate:"required"`
	LastName  string     `json:"last_name" validate:"required"`
	Email     string     `json:"email" validate:"required"`
	Password  string     `json:"password" validate:"required,notblank,min=8"`
	Role      model.Role `json:"role" validate:"omitempty,oneof=student instructor admin"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// required accepts whitespace-only strings.
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// normalizeEmail lower-cases and trims an address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PrepareRegistration normalizes in and reports every violated field at once. The role
// defaults to student. Both Register and the seed command create accounts through it.
func PrepareRegistration(in RegisterInput) (RegisterInput, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)

	var fields []string
	err := validate.Struct(registration{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
		Role:      in.Role,
	})
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	} else if err != nil {
		return in, apperrors.Internal(err)
	}

	if in.Email != "" && !emailShape.MatchString(in.Email) {
		fields = append(fields, "email")
	}
	if len(fields) > 0 {
		return in, apperrors.Validation("invalid registration data", fields...)
	}

	if in.Role == "" {
		in.Role = model.RoleStudent
	}
	return in, nil
}

// requireFields returns a validation error naming every empty value.
func requireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return apperrors.Validation("missing required fields", missing...)
	}
	return nil
}
