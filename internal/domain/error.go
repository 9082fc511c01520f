package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrTrackNotFound      = errors.New("track not found")
	ErrMissingItems       = errors.New("payload carries no line items")
	ErrDuplicateRefund    = errors.New("payment already refunded")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// Infrastructure errors surfaced by repositories
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// ValidationError names the request fields that failed validation so
// handlers can return them to the caller instead of a bare 400.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArgument }

// TracksNotFoundError lists the content ids a request referenced that do
// not exist. Raised before any gateway call is made.
type TracksNotFoundError struct {
	IDs []string
}

func (e *TracksNotFoundError) Error() string {
	return fmt.Sprintf("tracks not found: %s", strings.Join(e.IDs, ", "))
}

func (e *TracksNotFoundError) Is(target error) bool { return target == ErrTrackNotFound }
