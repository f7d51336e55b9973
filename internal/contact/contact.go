// Package contact defines a contact form submission and its validation rules.
package contact

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits, counted in characters after trimming.
const (
	MaxNameLen    = 100
	MaxMessageLen = 2000
	MaxPhoneLen   = 30
)

// Validation messages, returned in field order.
const (
	MsgNameRequired    = "name is required"
	MsgNameTooLong     = "name is too long (max 100 characters)"
	MsgEmailRequired   = "email is required"
	MsgEmailInvalid    = "invalid email format"
	MsgMessageRequired = "message is required"
	MsgMessageTooLong  = "message is too long (max 2000 characters)"
	MsgPhoneTooLong    = "phone number is too long (max 30 characters)"
)

// ErrInvalidJSON is returned by Decode when the body is not a UTF-8 JSON object.
var ErrInvalidJSON = errors.New("invalid JSON")

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Submission is the payload posted by the contact form. Honeypot is a
// hidden field that people never fill in.
type Submission struct {
	Name     string
	Email    string
	Message  string
	Phone    string
	Honeypot string
}

// Decode parses a request body. Missing fields and fields that are not
// JSON strings decode as empty strings, so validation decides what is
// acceptable rather than the decoder. The honeypot is the exception: any
// non-empty value fills it.
func Decode(raw []byte) (Submission, error) {
	if !utf8.Valid(raw) {
		return Submission{}, ErrInvalidJSON
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Submission{}, ErrInvalidJSON
	}

	return Submission{
		Name:     stringField(fields, "name"),
		Email:    stringField(fields, "email"),
		Message:  stringField(fields, "message"),
		Phone:    stringField(fields, "phone"),
		Honeypot: honeypotField(fields["honeypot"]),
	}, nil
}

// honeypotField keeps any filled-in trap value. Non-string values count as
// filled unless they are null, false, zero or empty.
func honeypotField(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if !v {
			return ""
		}
	case float64:
		if v == 0 {
			return ""
		}
	case []any:
		if len(v) == 0 {
			return ""
		}
	case map[string]any:
		if len(v) == 0 {
			return ""
		}
	}
	return fmt.Sprint(v)
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (s Submission) Trimmed() Submission {
	return Submission{
		Name:     strings.TrimSpace(s.Name),
		Email:    strings.TrimSpace(s.Email),
		Message:  strings.TrimSpace(s.Message),
		Phone:    strings.TrimSpace(s.Phone),
		Honeypot: strings.TrimSpace(s.Honeypot),
	}
}

// IsBot reports whether the honeypot field was filled in.
func (s Submission) IsBot() bool {
	return strings.TrimSpace(s.Honeypot) != ""
}

// Validate returns the first rule the submission breaks, or "" when it is
// acceptable. Fields are trimmed before checking.
func Validate(s Submission) string {
	s = s.Trimmed()

	switch {
	case s.Name == "":
		return MsgNameRequired
	case utf8.RuneCountInString(s.Name) > MaxNameLen:
		return MsgNameTooLong
	case s.Email == "":
		return MsgEmailRequired
	case !emailPattern.MatchString(s.Email):
		return MsgEmailInvalid
	case s.Message == "":
		return MsgMessageRequired
	case utf8.RuneCountInString(s.Message) > MaxMessageLen:
		return MsgMessageTooLong
	case utf8.RuneCountInString(s.Phone) > MaxPhoneLen:
		return MsgPhoneTooLong
	}
	return ""
}
