package errors

import (
	"strings"
	"unicode"
)

// ValidateTicker validates a ticker symbol from the reference table.
//
// Share-class notation varies by provider (BRK.B, BRK-B, BF/B), so only
// these rules apply:
//   - No empty tickers
//   - No whitespace or control characters
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return New(ErrCodeInvalidData, "ticker cannot be empty")
	}
	for _, r := range ticker {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidData, "ticker contains invalid characters: %q", ticker)
		}
	}
	return nil
}

// ValidateDate checks that a selection date is present. Dates are exact-match
// keys into the change table, so any format the table uses is accepted; a
// date without a row is an empty hierarchy, not invalid input.
func ValidateDate(date string) error {
	if strings.TrimSpace(date) == "" {
		return New(ErrCodeInvalidInput, "date cannot be empty")
	}
	return nil
}

// ValidatePath validates a data file path given on the command line or in
// the config file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateSectorName rejects sector names that cannot appear in a GICS
// classification column.
func ValidateSectorName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidData, "sector name cannot be empty")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidData, "sector name contains control characters")
		}
	}
	return nil
}
