package biddingerrors

import (
	"errors"
	"fmt"
)

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionExists   = errors.New("auction already exists")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrUserNoBids      = errors.New("user has not placed any bids")
	ErrProxyNotFound   = errors.New("proxy bid not found")
	ErrConflict        = errors.New("concurrent update conflict")
)

// business logic errors
var (
	ErrInvalidBid           = errors.New("invalid bid")
	ErrInvalidAuction       = errors.New("invalid auction details")
	ErrAuctionNotLive       = errors.New("auction is not live")
	ErrAuctionExpired       = errors.New("auction has expired")
	ErrInvalidTransition    = errors.New("invalid auction status transition")
	ErrSelfBid              = errors.New("cannot bid on own auction")
	ErrAlreadyHighestBidder = errors.New("already the highest bidder")
	ErrBidTooLow            = errors.New("bid amount too low")
	ErrMaxAmountTooLow      = errors.New("max amount must exceed current price")
)

// Kind classifies a rejection so callers can translate it to a transport response
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidState
	KindRuleViolation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidState:
		return "InvalidState"
	case KindRuleViolation:
		return "RuleViolation"
	case KindConflict:
		return "Conflict"
	default:
		return "Unknown"
	}
}

// Rejection is the typed outcome of a refused bid or proxy request
type Rejection struct {
	Kind   Kind
	Reason string
	Err    error
}

func (r *Rejection) Error() string {
	if r.Reason == "" {
		return r.Err.Error()
	}
	return fmt.Sprintf("%s: %s", r.Err.Error(), r.Reason)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// Reject builds a Rejection around one of the sentinels above
func Reject(kind Kind, err error, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the rejection kind carried by err, or 0 if err is not a rejection
func KindOf(err error) Kind {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Kind
	}
	switch {
	case errors.Is(err, ErrAuctionNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	}
	return 0
}
