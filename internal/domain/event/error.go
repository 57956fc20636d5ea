package event

import "errors"

var (
	ErrNotFound      = errors.New("sync event not found")
	ErrNotRetryable  = errors.New("sync event is not in a retryable state")
	ErrAlreadyFinal  = errors.New("sync event already in a terminal state")
	ErrEmptyPayload  = errors.New("sync event payload must not be empty")
	ErrUnknownType   = errors.New("unknown sync event type")
	ErrUnknownStatus = errors.New("unknown sync event status")
)
