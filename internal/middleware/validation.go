package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	maxContentLength = 100000
	maxIDLength      = 256
	maxSubjectLength = 1024
)

// ValidateContent validates message or question text.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("content cannot be empty")
	}
	if len(content) > maxContentLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateID validates a ledger id. Conversation ids are caller-chosen and
// carry the tenant as their prefix, so only their shape is checked.
func ValidateID(kind, id string) error {
	if id == "" {
		return errors.New(kind + " cannot be empty")
	}
	if len(id) > maxIDLength {
		return errors.New(kind + " exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New(kind + " must be valid UTF-8")
	}
	if strings.ContainsAny(id, "/?#") {
		return errors.New(kind + " contains invalid characters")
	}
	return nil
}

// ValidateSubject validates a conversation subject.
func ValidateSubject(subject string) error {
	if len(subject) > maxSubjectLength {
		return errors.New("subject exceeds maximum length")
	}
	if !utf8.ValidString(subject) {
		return errors.New("subject must be valid UTF-8")
	}
	return nil
}
