package tenant

import (
	"errors"
	"net/http"
	"strings"
)

// Kind is a coarse classification of a tenant connection failure.
type Kind string

const (
	KindRefused         Kind = "connection_refused"
	KindAuthFailed      Kind = "auth_failed"
	KindMissingDatabase Kind = "missing_database"
	KindTimeout         Kind = "timeout"
	KindSSL             Kind = "ssl"
	KindPermission      Kind = "permission_denied"
	KindUnknown         Kind = "unknown"
)

// ConnError is a classified tenant connection failure. Message is safe to
// show to the owning user; Status is the HTTP status used when the failure
// surfaces synchronously (connection tests).
type ConnError struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *ConnError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *ConnError) Unwrap() error { return e.Err }

// AsConnError extracts a *ConnError from an error chain.
func AsConnError(err error) (*ConnError, bool) {
	var ce *ConnError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Classify maps a driver error to a ConnError by message inspection. The
// Postgres wire protocol surfaces most of these only as text, so substring
// matching is the practical option.
func Classify(err error) *ConnError {
	if err == nil {
		return nil
	}
	if ce, ok := AsConnError(err); ok {
		return ce
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "connection refused"):
		return &ConnError{
			Kind:    KindRefused,
			Message: "Could not connect to the database server. Please check if the server is running and the host/port are correct.",
			Status:  http.StatusBadRequest,
			Err:     err,
		}
	case strings.Contains(msg, "password authentication failed"):
		return &ConnError{
			Kind:    KindAuthFailed,
			Message: "Authentication failed. Please check your username and password.",
			Status:  http.StatusUnauthorized,
			Err:     err,
		}
	case strings.Contains(msg, "database") && strings.Contains(msg, "does not exist"):
		return &ConnError{
			Kind:    KindMissingDatabase,
			Message: "The specified database does not exist. Please check the database name.",
			Status:  http.StatusBadRequest,
			Err:     err,
		}
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "context deadline exceeded"):
		return &ConnError{
			Kind:    KindTimeout,
			Message: "Connection timed out. Please check if the database server is accessible and not blocking connections.",
			Status:  http.StatusRequestTimeout,
			Err:     err,
		}
	case strings.Contains(msg, "ssl"):
		return &ConnError{
			Kind:    KindSSL,
			Message: "SSL connection failed. Please check your SSL configuration and certificates.",
			Status:  http.StatusBadRequest,
			Err:     err,
		}
	case strings.Contains(msg, "permission denied"):
		return &ConnError{
			Kind:    KindPermission,
			Message: "Permission denied. Please check if the user has the necessary database permissions.",
			Status:  http.StatusForbidden,
			Err:     err,
		}
	default:
		return &ConnError{
			Kind:    KindUnknown,
			Message: "Failed to connect to the database. Please check your connection details and try again.",
			Status:  http.StatusInternalServerError,
			Err:     err,
		}
	}
}
