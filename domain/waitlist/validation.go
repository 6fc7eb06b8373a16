package waitlist

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

const (
	emailValidationTag = "waitlist_email"
	maxEmailLength     = 320
)

// local-part@domain.tld, no whitespace or extra '@' in any segment.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	emailValidator = newEmailValidator()
	emailRules     = fmt.Sprintf("required,max=%d,%s", maxEmailLength, emailValidationTag)
)

func newEmailValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation(emailValidationTag, func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

func ValidateEmail(email string) error {
	return emailValidator.Var(email, emailRules)
}
