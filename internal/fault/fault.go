// Package fault provides single error instances grouped by kind so callers can
// compare with errors.Is and classify with errors.As without matching strings.
package fault

import "errors"

// error base
type GenericError string

// error kinds
type AuthorizationError GenericError
type AllocationError GenericError
type InvalidError GenericError
type NotFoundError GenericError
type RangeError GenericError

func (e GenericError) Error() string       { return string(e) }
func (e AuthorizationError) Error() string { return string(e) }
func (e AllocationError) Error() string    { return string(e) }
func (e InvalidError) Error() string       { return string(e) }
func (e NotFoundError) Error() string      { return string(e) }
func (e RangeError) Error() string         { return string(e) }

// common errors - keep in alphabetic order within each kind
var (
	ErrMissingSigner = AuthorizationError("signer is required")
	ErrNotAuthority  = AuthorizationError("signer is not the record authority")

	ErrRecordExists = AllocationError("record already exists at address")

	ErrCollectionMismatch = InvalidError("document does not belong to collection")
	ErrContentTooLarge    = InvalidError("content exceeds buffer capacity")
	ErrInvalidAddress     = InvalidError("address is invalid")
	ErrInvalidLayout      = InvalidError("record layout is invalid")
	ErrInvalidSignature   = InvalidError("signature is invalid")
	ErrWrongRecordKind    = InvalidError("record is of the wrong kind")

	ErrCollectionNotFound = NotFoundError("collection not found")
	ErrDocumentNotFound   = NotFoundError("document not found")
	ErrRecordNotFound     = NotFoundError("record not found")

	ErrCounterOverflow  = RangeError("collection count overflow")
	ErrCounterUnderflow = RangeError("collection count underflow")
)

// IsErrAuthorization - check if error is an authorization failure
func IsErrAuthorization(e error) bool {
	var target AuthorizationError
	return errors.As(e, &target)
}

// IsErrAllocation - check if error is an allocation conflict
func IsErrAllocation(e error) bool {
	var target AllocationError
	return errors.As(e, &target)
}

// IsErrInvalid - check if error is a validation failure
func IsErrInvalid(e error) bool {
	var target InvalidError
	return errors.As(e, &target)
}

// IsErrNotFound - check if error is a missing record
func IsErrNotFound(e error) bool {
	var target NotFoundError
	return errors.As(e, &target)
}

// IsErrRange - check if error is a counter range failure
func IsErrRange(e error) bool {
	var target RangeError
	return errors.As(e, &target)
}
