package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDomain           = errors.New("Please use your school email address")
	ErrWeakPassword     = errors.New("Password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("Passwords do not match")
	ErrAuthRequired     = errors.New("Not authenticated")
	ErrForbidden        = errors.New("You can only modify your own listings")
	ErrNotFound         = errors.New("Listing not found")
)

// ErrInvalidCredentials is the identity provider rejecting an email/password or refresh token.
var ErrInvalidCredentials = errors.New("Invalid login credentials")

// ErrProviderRejected is any other 4xx answer from the identity provider, such as an
// already registered email or a rate limit.
var ErrProviderRejected = errors.New("Request rejected by identity provider")

// ValidationError carries per-field messages. Nothing is sent to the backend when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// OrNil returns nil when no field failed, so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}

// FetchError is a transport or storage failure talking to the backend.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Failed to %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UploadError is a failed image upload. Listing creation proceeds without the image.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("Failed to upload image: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
