// Package common defines shared constants and sentinel errors used across
// the bot, the watcher and the record store. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Watcher errors.
	ErrSubscriptionUnavailable = errors.New("subscription unavailable")
	ErrFetchFailure            = errors.New("image fetch failed")
	ErrWriteFailure            = errors.New("notify reset failed")

	// History selection: the requested count is not smaller than the number
	// of stored images.
	ErrInsufficientHistory = errors.New("insufficient image history")

	// Session-level errors.
	ErrInvalidUserID = errors.New("invalid user id")
	ErrNotSignedUp   = errors.New("not signed up")
)
