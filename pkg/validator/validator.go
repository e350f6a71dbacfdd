package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "shop-auth/pkg/errors"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores anything longer

	tagUsername = "username"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,64}$`)

// messages maps validation tags to friendly texts. One %s is the field
// name, a second one the tag parameter.
var messages = map[string]string{
	"required":  "the field '%s' is required",
	"email":     "the field '%s' must be a valid email address",
	"min":       "the field '%s' must be at least %s characters long",
	"max":       "the field '%s' must be no longer than %s characters",
	"gte":       "the field '%s' must be greater than or equal to %s",
	"lte":       "the field '%s' must be less than or equal to %s",
	tagUsername: "the field '%s' must be 3 to 64 letters, digits, dots, dashes or underscores",
}

// Validator implements echo.Validator on top of go-playground/validator.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	if err := v.RegisterValidation(tagUsername, func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tagUsername, err))
	}
	return &Validator{validate: v}
}

// Validate returns an ErrValidation AppError listing every failed field.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Validation(err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe))
	}
	return apperrors.Validation(strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	msg, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("the field '%s' is invalid: %s", fe.Field(), fe.Tag())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(msg, fe.Field())
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
