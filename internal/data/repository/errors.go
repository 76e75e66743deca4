package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict means the row changed since it was read.
	ErrVersionConflict = errors.New("version conflict")
	// ErrListingClosed means the listing no longer accepts offers.
	ErrListingClosed = errors.New("listing closed for offers")
	// ErrStaleStatus means a conditional status update found a different status.
	ErrStaleStatus = errors.New("status changed concurrently")
	// ErrDuplicateReference means a generated booking reference is already taken.
	ErrDuplicateReference = errors.New("duplicate booking reference")
)
