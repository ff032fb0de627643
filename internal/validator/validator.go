// Package validator provides request validation and input sanitization
// for the ShopDesk backend.
package validator

import (
	"errors"
	"net/mail"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
)

// Validation errors
var (
	ErrInvalidEmail         = errors.New("invalid email format")
	ErrInvalidParticipantID = errors.New("invalid participant id")
	ErrInputTooLong         = errors.New("input exceeds maximum length")
	ErrInvalidCharacter     = errors.New("input contains invalid characters")
	ErrEmptyInput           = errors.New("input cannot be empty")
)

// MaxParticipantIDLength bounds participant ids so they fit realtime topic names
const MaxParticipantIDLength = 64

// Participant ids are opaque but restricted to a URL and topic safe alphabet
var participantIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:@-]*$`)

// Validator adapts go-playground/validator to echo.Validator
type Validator struct {
	validate *playground.Validate
}

// New creates a Validator with the participant_id tag registered. Field
// names in errors follow the json tag when present.
func New() *Validator {
	v := playground.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("participant_id", func(fl playground.FieldLevel) bool {
		return ValidateParticipantID(fl.Field().String()) == nil
	})
	return &Validator{validate: v}
}

// Validate validates a struct using its `validate` tags
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// ValidateEmail validates email address format according to RFC 5322.
// Returns nil if valid, or an appropriate error.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if email == "" {
		return ErrEmptyInput
	}

	// RFC 5321 specifies max email length of 254 characters
	if utf8.RuneCountInString(email) > 254 {
		return ErrInputTooLong
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	return nil
}

// ValidateParticipantID checks an opaque participant identifier
func ValidateParticipantID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyInput
	}
	if len(id) > MaxParticipantIDLength {
		return ErrInputTooLong
	}
	if !participantIDRegex.MatchString(id) {
		return ErrInvalidParticipantID
	}
	return nil
}

// ValidateMessageBody sanitizes a message body and checks it against maxLength
// (in characters). Line breaks are kept.
func ValidateMessageBody(body string, maxLength int) (string, error) {
	body = SanitizeMessageBody(body)
	if body == "" {
		return "", ErrEmptyInput
	}
	if maxLength > 0 && utf8.RuneCountInString(body) > maxLength {
		return "", ErrInputTooLong
	}
	return body, nil
}

// Pagination constants
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// ValidatePagination validates and sanitizes pagination parameters.
// Returns sanitized limit and offset values.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// SanitizeMessageBody removes control characters except newlines and tabs,
// normalizes CRLF and trims surrounding whitespace.
func SanitizeMessageBody(input string) string {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(input)
}

// SanitizeString removes potentially dangerous characters and enforces length limits.
// Removes control characters and trims whitespace.
func SanitizeString(input string, maxLength int) string {
	// Remove control characters (ASCII 0-31 and 127)
	input = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)

	input = strings.TrimSpace(input)

	// Enforce maximum length if specified
	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}

	return input
}
