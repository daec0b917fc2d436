package account

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jrsteele09/restaurant-portal/internal/errors"
)

const MinPasswordLength = 8

// ValidateNewPassword checks a password and its confirmation
func ValidateNewPassword(password, confirm string) error {
	if password != confirm {
		return fmt.Errorf("%w: password confirmation does not match", errors.ErrValidation)
	}
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", errors.ErrValidation, MinPasswordLength)
	}
	return nil
}

var genders = map[string]bool{"": true, "male": true, "female": true, "other": true}

func (r Registration) Validate() error {
	var errs []error
	if strings.TrimSpace(r.FirstName) == "" {
		errs = append(errs, fmt.Errorf("%w: first name is required", errors.ErrValidation))
	}
	if strings.TrimSpace(r.LastName) == "" {
		errs = append(errs, fmt.Errorf("%w: last name is required", errors.ErrValidation))
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		errs = append(errs, fmt.Errorf("%w: email is not valid", errors.ErrValidation))
	}
	if r.DateOfBirth != "" {
		if _, err := time.Parse(time.DateOnly, r.DateOfBirth); err != nil {
			errs = append(errs, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", errors.ErrValidation))
		}
	}
	if !genders[strings.ToLower(r.Gender)] {
		errs = append(errs, fmt.Errorf("%w: gender must be male, female or other", errors.ErrValidation))
	}
	if len([]rune(r.Password)) < MinPasswordLength {
		errs = append(errs, fmt.Errorf("%w: password must be at least %d characters long", errors.ErrValidation, MinPasswordLength))
	}
	return errors.Join(errs...)
}
