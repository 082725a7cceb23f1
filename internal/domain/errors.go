package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidSchedule     = errors.New("invalid schedule")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrRunInProgress       = errors.New("run already in progress")
	ErrProviderFailure     = errors.New("provider failure")
	ErrDuplicateOperation  = errors.New("duplicate operation")
)
