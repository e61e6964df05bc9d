package library

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Pure precondition checks. Each either returns nil or a validation-kind
// *Error naming the offending field. Entity operations run every required
// validator before touching storage; the first failure short-circuits.

// ValidateNotEmpty fails when value is empty or all-whitespace.
func ValidateNotEmpty(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return validationError(field, "cannot be empty")
	}
	return nil
}

// ValidateLength fails when the rune count of value falls outside [min, max].
// A bound of 0 is unenforced on that side.
func ValidateLength(value, field string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if min > 0 && n < min {
		return validationError(field, fmt.Sprintf("must be at least %d characters", min))
	}
	if max > 0 && n > max {
		return validationError(field, fmt.Sprintf("must be at most %d characters", max))
	}
	return nil
}

// ValidateChoice fails when value is not one of allowed. The message
// enumerates the allowed set.
func ValidateChoice(value, field string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return validationError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// ValidateEmail checks a simple local@domain.tld shape. It is deliberately
// loose; the unique index on members.email is the real gatekeeper.
func ValidateEmail(email string) error {
	if err := ValidateNotEmpty(email, "email"); err != nil {
		return err
	}
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return validationError("email", "must look like local@domain.tld")
	}
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return validationError("email", "must look like local@domain.tld")
	}
	return nil
}

// ValidateISBN checks ISBN shape only: after stripping hyphens and spaces the
// value must be purely numeric and 10 or 13 digits long. Checksum
// verification is intentionally not performed.
func ValidateISBN(isbn string) error {
	if strings.TrimSpace(isbn) == "" {
		return validationError("isbn", "cannot be empty")
	}
	digits := strings.NewReplacer("-", "", " ", "").Replace(isbn)
	for _, r := range digits {
		if r < '0' || r > '9' {
			return validationError("isbn", "must contain only digits and hyphens")
		}
	}
	if len(digits) != 10 && len(digits) != 13 {
		return validationError("isbn", "must be 10 or 13 digits")
	}
	return nil
}

// ValidateYear accepts nil (the field is optional) and otherwise requires a
// plausible publication year: 1000 up to next year.
func ValidateYear(year *int) error {
	if year == nil {
		return nil
	}
	current := time.Now().Year()
	if *year < 1000 {
		return validationError("published_year", "must be 1000 or later")
	}
	if *year > current+1 {
		return validationError("published_year", fmt.Sprintf("cannot be after %d", current+1))
	}
	return nil
}
