// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jeranaias/auditchat/internal/offline"
)

// Error variables for gateway outcomes.
var (
	// ErrQueued means the mutation could not reach the server and was saved
	// to the offline queue for replay.
	ErrQueued = errors.New("queued until the server is reachable")

	// ErrOffline means the server could not be reached.
	ErrOffline = errors.New("server unreachable")

	// ErrNotConfigured means no server URL is set.
	ErrNotConfigured = errors.New("server URL not configured")

	// ErrUnauthorized indicates a missing, invalid or expired session token.
	ErrUnauthorized = errors.New("not signed in or session expired")

	// ErrForbidden indicates the token lacks access to the resource.
	ErrForbidden = errors.New("access denied")

	// ErrNotFound indicates the conversation, message or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the request conflicts with existing state, such as
	// a duplicate conversation title.
	ErrConflict = errors.New("conflict with existing data")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("server error")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("server error [%s] (HTTP %d): %s", e.Code, e.Status, msg)
	}
	return fmt.Sprintf("server error (HTTP %d): %s", e.Status, msg)
}

// Unwrap maps the status to its sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 500:
		return ErrServer
	default:
		return nil
	}
}

// Permanent reports whether retrying the same request cannot succeed.
// Client errors are permanent except for timeouts and rate limiting.
func (e *APIError) Permanent() bool {
	if e.Status == http.StatusRequestTimeout || e.Status == http.StatusTooManyRequests {
		return false
	}
	return e.Status >= 400 && e.Status < 500
}

// IsPermanent reports whether err is a permanent server rejection.
func IsPermanent(err error) bool {
	return offline.IsPermanent(err)
}

// UserMessage returns a short message suitable for a notification.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQueued):
		return "You're offline. The change was saved and will sync when you reconnect."
	case errors.Is(err, ErrOffline):
		return "Can't reach the server. Check your connection and try again."
	case errors.Is(err, ErrConflict):
		return "That conflicts with something that already exists. Try a different name."
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Sign in again to continue."
	case errors.Is(err, ErrNotFound):
		return "That item no longer exists on the server."
	case errors.Is(err, ErrRateLimited):
		return "Too many requests. Wait a moment and try again."
	default:
		return "Something went wrong. Please try again."
	}
}
