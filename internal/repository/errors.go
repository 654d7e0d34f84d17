// Package repository contains the data access layer.  All SQL lives here,
// written against MySQL with hand-rolled queries; business logic operates on
// the model types this package scans into.  Sentinel errors defined in this
// file let handlers distinguish failure scenarios without inspecting raw
// database errors.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// record they do not own and lack the role to override.  Handlers should
// translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrReservationNotFound indicates the requested reservation does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrIntentNotFound indicates the requested refresh intent does not exist.
var ErrIntentNotFound = errors.New("refresh intent not found")

// ErrConflictNotFound indicates the requested conflict record does not exist.
var ErrConflictNotFound = errors.New("conflict not found")

// ErrBindingNotFound indicates the requested resource binding does not exist.
var ErrBindingNotFound = errors.New("resource binding not found")
