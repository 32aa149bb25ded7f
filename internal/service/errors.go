package service

import (
	"errors"

	"github.com/digkill/promoshot/internal/repository"
)

// Store-level sentinels are re-exported so callers only need this package.
var (
	ErrInsufficientCredits = repository.ErrInsufficientCredits
	ErrProjectNotFound     = repository.ErrProjectNotFound
	ErrUserNotFound        = repository.ErrUserNotFound
)

var (
	ErrGenerationInProgress  = errors.New("generation in progress")
	ErrVideoAlreadyGenerated = errors.New("video already generated")
	ErrGeneratedImageMissing = errors.New("generated image not found")
	ErrCapabilityUnavailable = errors.New("video generation is not available")
	ErrUpstream              = errors.New("upstream failure")
	ErrInvalidAmount         = errors.New("amount must be positive")
)

// ValidationError rejects a request before anything is reserved or stored.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UpstreamError wraps a failure of the asset store or the generation provider.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func upstream(message string, err error) error {
	return &UpstreamError{Message: message, Err: err}
}
