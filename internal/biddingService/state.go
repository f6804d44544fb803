package bidding

import (
	model "bidding-engine/internal/models"
	"bidding-engine/utils"
	"time"

	"github.com/shopspring/decimal"
)

// withBid returns the snapshot that results from accepting a bid, plus the ledger entry.
// The input snapshot is never modified.
func withBid(a model.Auction, bidderID string, amount decimal.Decimal, kind model.BidKind, at time.Time) (model.Auction, model.Bid) {
	next := a
	next.CurrentPrice = decimal.NewNullDecimal(amount)
	next.WinnerID = bidderID
	next.BidCount = a.BidCount + 1
	next.UpdatedAt = at

	bid := model.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: a.AuctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Kind:      kind,
		Seq:       next.BidCount,
		CreatedAt: at,
	}
	return next, bid
}

// nextVersion stamps a snapshot as the successor of base
func nextVersion(base, next model.Auction) model.Auction {
	next.Version = base.Version + 1
	return next
}
