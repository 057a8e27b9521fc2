package domain

import "errors"

// Lookup errors
var (
	ErrRequestNotFound = errors.New("auction request not found")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrBidNotFound     = errors.New("bid not found")
)

// Validation errors (user-correctable request terms)
var (
	ErrInvalidTerms     = errors.New("invalid auction terms")
	ErrDuplicateRequest = errors.New("listing already has a pending auction request")
)

// State-conflict errors (operation no longer valid, re-fetch and retry)
var (
	ErrNotPending         = errors.New("auction request is not pending")
	ErrTimingExpired      = errors.New("auction timing has expired")
	ErrAuctionNotActive   = errors.New("auction is not active")
	ErrBidTooLow          = errors.New("bid amount too low")
	ErrBidAtOrAboveBuyout = errors.New("bid amount reached the buyout price, use buyout instead")
	ErrBuyoutUnavailable  = errors.New("buyout is no longer available")
)

// Forbidden errors (role and ownership checks)
var (
	ErrForbidden  = errors.New("forbidden")
	ErrNotAdmin   = errors.New("caller is not an admin")
	ErrSelfBid    = errors.New("host cannot bid on their own auction")
	ErrSelfBuyout = errors.New("host cannot buy out their own auction")
)
