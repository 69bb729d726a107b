// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"errors"
	"fmt"
)

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type LengthError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type RecordError GenericError

// common errors - keep in alphabetic order
var (
	ErrConfigurationNotTable = InvalidError("configuration did not return a table")
	ErrDuplicateMismatch     = RecordError("duplicate message has different content")
	ErrDuplicateParent       = InvalidError("duplicate parent")
	ErrIdMismatch            = InvalidError("message id does not match content")
	ErrIncompatibleVersion   = RecordError("incompatible storage version")
	ErrInvalidCount          = InvalidError("invalid count")
	ErrInvalidDirection      = InvalidError("invalid traversal direction")
	ErrInvalidHealth         = RecordError("invalid storage health value")
	ErrInvalidIdLength       = LengthError("invalid message id length")
	ErrInvalidStructPointer  = InvalidError("invalid struct pointer")
	ErrNotRunning            = ProcessError("tangle is not running")
	ErrStorageClosed         = ProcessError("storage is closed")
	ErrStorageCorrupted      = RecordError("storage is corrupted")
	ErrTooManyParents        = LengthError("too many parents")
	ErrTruncatedRecord       = LengthError("truncated record")
	ErrUnknownBackend        = InvalidError("unknown storage backend")
	ErrUnknownConflictReason = InvalidError("unknown conflict reason")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e LengthError) Error() string   { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }
func (e RecordError) Error() string   { return string(e) }

// determine the class of an error
func IsErrExists(e error) bool   { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool  { _, ok := e.(InvalidError); return ok }
func IsErrLength(e error) bool   { _, ok := e.(LengthError); return ok }
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
func IsErrRecord(e error) bool   { _, ok := e.(RecordError); return ok }

// BackendError - a failure reported by a storage backend
//
// this is never used for a missing key, absence is reported as a nil
// result so callers can distinguish "not found" from "backend failure"
type BackendError struct {
	Op  string
	Err error
}

// NewBackendError - wrap a backend error, nil stays nil
func NewBackendError(op string, err error) error {
	if nil == err {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("storage %s: %s", e.Op, e.Err)
}

// Unwrap - access the original backend error
func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsErrBackend - true if any error in the chain came from a storage backend
func IsErrBackend(e error) bool {
	var be *BackendError
	return errors.As(e, &be)
}
