package model

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrAccessDenied           = errors.New("access denied")
	ErrInvalidState           = errors.New("invalid state")
	ErrPolicyViolation        = errors.New("policy violation")
	ErrDuplicateDocument      = errors.New("duplicate document")
	ErrStorageUnavailable     = errors.New("storage unavailable")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrConfiguration          = errors.New("configuration error")
)

// Policy rules named by a PolicyViolation.
const (
	RuleSize      = "size"
	RuleMediaType = "media_type"
	RuleExtension = "extension"
)

// Error is a classified failure. Subject names the application, document or category
// involved and Reason is safe to show to an end user.
type Error struct {
	Kind    error
	Subject string
	Rule    string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %s", e.Subject, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds a classified error without an underlying cause.
func NewError(kind error, subject, reason string) *Error {
	return &Error{Kind: kind, Subject: subject, Reason: reason}
}

// WrapError classifies a collaborator failure.
func WrapError(kind error, subject, reason string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Reason: reason, Err: err}
}

// PolicyViolation reports which validation rule an upload broke.
func PolicyViolation(subject, rule, reason string) *Error {
	return &Error{Kind: ErrPolicyViolation, Subject: subject, Rule: rule, Reason: reason}
}

// Reason returns the user-facing message of a classified error, or fallback otherwise.
func Reason(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Subject != "" {
			return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
		}
		return e.Reason
	}
	return fallback
}
