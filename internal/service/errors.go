package service

import "fmt"

// SyncError reports that the billing provider was unreachable or returned an
// error while reconciling. It is recoverable: callers may retry, and the
// access gate treats it as not-entitled ("sync-failed"), never as entitled.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("billing sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// StoreError reports a persistence read or write failure. The trial
// evaluator recovers from it locally; the reconciliation engine propagates
// it, since swallowing it there would mask stale entitlement.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ValidationError reports a malformed mutation request, rejected before any
// network call is made.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}
