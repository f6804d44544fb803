package bidding

import (
	"bidding-engine/internal/biddingerrors"
	model "bidding-engine/internal/models"
	"time"

	"github.com/shopspring/decimal"
)

// ValidateManualBid checks a manual bid against the auction snapshot.
// It returns nil when the bid may be placed.
func ValidateManualBid(auction model.Auction, bidderID string, amount decimal.Decimal, now time.Time) *biddingerrors.Rejection {
	if auction.Status != model.StatusLive {
		return biddingerrors.Reject(biddingerrors.KindInvalidState, biddingerrors.ErrAuctionNotLive,
			"auction status is %s", auction.Status)
	}
	if now.After(auction.EndTime) {
		return biddingerrors.Reject(biddingerrors.KindInvalidState, biddingerrors.ErrAuctionExpired,
			"auction ended at %s", auction.EndTime.UTC().Format(time.RFC3339))
	}
	if bidderID == auction.SellerID {
		return biddingerrors.Reject(biddingerrors.KindRuleViolation, biddingerrors.ErrSelfBid,
			"user %s is the seller", bidderID)
	}

	minimum := auction.NextMinimum()
	if amount.LessThan(minimum) {
		return biddingerrors.Reject(biddingerrors.KindRuleViolation, biddingerrors.ErrBidTooLow,
			"bid must be at least %s (current price %s + min increment %s)",
			minimum.StringFixed(model.MoneyPlaces), auction.Price().StringFixed(model.MoneyPlaces),
			auction.MinIncrement.StringFixed(model.MoneyPlaces))
	}
	if auction.HasWinner() && bidderID == auction.WinnerID {
		return biddingerrors.Reject(biddingerrors.KindRuleViolation, biddingerrors.ErrAlreadyHighestBidder,
			"wait for someone to outbid you")
	}
	return nil
}

// ValidateProxyCommitment checks a new or updated proxy ceiling against the auction snapshot
func ValidateProxyCommitment(auction model.Auction, bidderID string, maxAmount decimal.Decimal) *biddingerrors.Rejection {
	if auction.Status != model.StatusLive {
		return biddingerrors.Reject(biddingerrors.KindInvalidState, biddingerrors.ErrAuctionNotLive,
			"auction status is %s", auction.Status)
	}
	if bidderID == auction.SellerID {
		return biddingerrors.Reject(biddingerrors.KindRuleViolation, biddingerrors.ErrSelfBid,
			"user %s is the seller", bidderID)
	}
	if maxAmount.LessThanOrEqual(auction.Price()) {
		return biddingerrors.Reject(biddingerrors.KindRuleViolation, biddingerrors.ErrMaxAmountTooLow,
			"current price is %s", auction.Price().StringFixed(model.MoneyPlaces))
	}
	return nil
}
