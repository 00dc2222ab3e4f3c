// This file defines the sentinel errors of the queue engine and its
// stores.  Handlers compare with errors.Is and translate them into HTTP
// statuses; nothing here is fatal: every error is a rejected operation
// on a single token or batch, never store corruption.
package queue

import "errors"

// Store-level errors.  Every TokenStore implementation returns these so
// the engine stays ignorant of the driver underneath.

// ErrTokenNotFound is returned when no token matches the requested id.
var ErrTokenNotFound = errors.New("token not found")

// ErrStatusConflict is returned when a compare-and-set transition finds
// the token in a status other than the expected one.  The caller lost
// a race and should re-fetch before deciding what to do.
var ErrStatusConflict = errors.New("token status conflict")

// ErrDuplicateToken is returned when creating a token whose
// (department, date, slot, number) key already exists.
var ErrDuplicateToken = errors.New("duplicate token number for slot")

// Operation-level errors returned by the Controller.

// ErrAlreadyServing is returned by ServeNext/ServeSpecific when a token
// is already being served for the queue key.  The officer must complete
// or skip the current token first; this is never retried automatically.
var ErrAlreadyServing = errors.New("a token is already being served")

// ErrEmptyQueue is returned by ServeNext when no WAITING token exists
// for the key.  Surfaced as a non-fatal empty state.
var ErrEmptyQueue = errors.New("no waiting tokens")

// ErrNotServing is returned by Complete/Skip when the token is not
// currently SERVING (for example, already completed by a concurrent
// request).  Callers should refresh their view rather than treat this
// as a hard failure.
var ErrNotServing = errors.New("token is not being served")

// ErrTokenNotWaiting is returned by ServeSpecific when the named token
// is not currently WAITING.
var ErrTokenNotWaiting = errors.New("token is not waiting")
