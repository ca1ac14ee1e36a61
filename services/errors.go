package services

import "errors"

// Sentinel errors shared across the service layer. Controllers map these onto
// HTTP statuses; everything else surfaces as a 500.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrDraftNotComplete = errors.New("draft is not complete")
	ErrDuplicateDraft   = errors.New("draft id already exists")
	ErrStoreUnavailable = errors.New("draft store unavailable")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidCursor    = errors.New("invalid pagination cursor")
	ErrInvalidLimit     = errors.New("limit out of range")
)
