// Package validate holds the field validators applied at registration and
// profile edit time.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// ErrInvalid is the match target for every validation failure.
var ErrInvalid = errors.New("validate: invalid")

var (
	nationalIDPattern = regexp.MustCompile(`^[23]\d{13}$`)
	phonePattern      = regexp.MustCompile(`^01[015]\d{8}$`)
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern       = regexp.MustCompile(`^[\p{L}][\p{L} '-]+$`)
)

// NationalID accepts a 14-digit identifier whose century digit is 2 or 3.
func NationalID(id string) error {
	id = strings.TrimSpace(id)
	if !nationalIDPattern.MatchString(id) {
		return fmt.Errorf("%w: national ID must be 14 digits starting with 2 or 3", ErrInvalid)
	}
	return nil
}

// Phone accepts an 11-digit mobile number with prefix 010, 011 or 015.
func Phone(phone string) error {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("%w: phone must be 11 digits starting with 010, 011 or 015", ErrInvalid)
	}
	return nil
}

func Email(email string) error {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: malformed email address", ErrInvalid)
	}
	return nil
}

// Name accepts letters, spaces, apostrophes and hyphens, at least two runes.
func Name(name string) error {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 || !namePattern.MatchString(name) {
		return fmt.Errorf("%w: name must be at least 2 letters without digits", ErrInvalid)
	}
	return nil
}

// Password requires at least 8 characters containing a letter and a digit.
func Password(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalid)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: password must contain a letter and a digit", ErrInvalid)
	}
	return nil
}

var genders = map[string]bool{"male": true, "female": true, "other": true}

var relationships = map[string]bool{
	"spouse":   true,
	"father":   true,
	"mother":   true,
	"son":      true,
	"daughter": true,
	"brother":  true,
	"sister":   true,
}

// Gender accepts male, female or other.
func Gender(gender string) error {
	if !genders[strings.ToLower(strings.TrimSpace(gender))] {
		return fmt.Errorf("%w: gender must be male, female or other", ErrInvalid)
	}
	return nil
}

// Relationship accepts an immediate family relation.
func Relationship(rel string) error {
	if !relationships[strings.ToLower(strings.TrimSpace(rel))] {
		return fmt.Errorf("%w: unsupported family relationship", ErrInvalid)
	}
	return nil
}

// Age accepts ages between 1 and 150.
func Age(age int) error {
	if age < 1 || age > 150 {
		return fmt.Errorf("%w: age must be between 1 and 150", ErrInvalid)
	}
	return nil
}

// DateOfBirth must lie in the past and within a plausible lifespan.
func DateOfBirth(dob time.Time) error {
	now := time.Now().UTC()
	if !dob.Before(now) {
		return fmt.Errorf("%w: date of birth must be in the past", ErrInvalid)
	}
	if dob.Before(now.AddDate(-150, 0, 0)) {
		return fmt.Errorf("%w: date of birth is implausibly old", ErrInvalid)
	}
	return nil
}
