package errors

import "errors"

var (
	ErrKanbanNotConfigured = errors.New("kanban API URL is not configured")

	ErrInvalidBooking = errors.New("booking failed validation")

	ErrForwardFailed = errors.New("failed to forward booking to kanban")
)
