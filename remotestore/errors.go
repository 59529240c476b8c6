package remotestore

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteUnavailable reports a database or network failure
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrPermissionDenied reports a write rejected by the security rules
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound reports an update against a missing document
	ErrNotFound = errors.New("document not found")
	// ErrUnknownCollection reports a collection outside products, orders and settings
	ErrUnknownCollection = errors.New("unknown collection")
)

// Error describes a failed store operation
type Error struct {
	Op         string
	Collection string
	ID         string
	Kind       error // one of the Err* sentinels
	Err        error // underlying cause, may be nil
}

func (e *Error) Error() string {
	target := e.Collection
	if e.ID != "" {
		target += "/" + e.ID
	}
	if e.Err == nil {
		return fmt.Sprintf("remotestore: %s %s: %v", e.Op, target, e.Kind)
	}
	return fmt.Sprintf("remotestore: %s %s: %v: %v", e.Op, target, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code maps a store error to the error code used in API responses
func Code(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "PERMISSION_DENIED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnknownCollection):
		return "INVALID_COLLECTION"
	default:
		return "REMOTE_UNAVAILABLE"
	}
}

func storeError(op, collection, id string, kind, cause error) error {
	return &Error{Op: op, Collection: collection, ID: id, Kind: kind, Err: cause}
}
