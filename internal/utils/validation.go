package contextutils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Field limits for account details
const (
	MaxFieldLength    = 255
	MinPasswordLength = 6
)

var validate = validator.New()

// Account addresses are plain ASCII with a dotted domain.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]+$`)

const passwordSpecials = "!@#$%^&*()-_+=|{}[]:;<>,.?"

// IsValidEmail checks if an email address is valid using go-playground/validator
// and the account address pattern.
func IsValidEmail(email string) bool {
	if validate.Var(email, "required,email") != nil {
		return false
	}
	return emailPattern.MatchString(email)
}

// CheckLength reports whether s fits in a stored text column.
func CheckLength(s string) bool {
	return utf8.RuneCountInString(s) <= MaxFieldLength
}

// IsPasswordLengthValid reports whether password is between 6 and 255 characters.
func IsPasswordLengthValid(password string) bool {
	n := utf8.RuneCountInString(password)
	return n >= MinPasswordLength && n <= MaxFieldLength
}

// IsPasswordComplex reports whether password has an upper case letter, a lower case
// letter and a special character.
func IsPasswordComplex(password string) bool {
	var upper, lower, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && special
}

// ValidateStruct runs validator tags on v and converts failures to a validation AppError.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return NewAppErrorWithCause(ErrorCodeValidationFailed, SeverityWarn,
			"Validation failed", fmt.Sprintf("%s failed %s check", fe.Field(), fe.Tag()), err)
	}
	return WrapError(ErrValidationFailed, err.Error())
}
