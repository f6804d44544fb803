package bidding

import (
	model "bidding-engine/internal/models"

	"github.com/shopspring/decimal"
)

// AutoBid is a counter-bid the resolver wants placed on behalf of a proxy holder
type AutoBid struct {
	BidderID string
	Amount   decimal.Decimal
}

// strongestProxy returns the highest-ceiling commitment accepted by keep.
// Equal ceilings go to the commitment registered first.
func strongestProxy(proxies []model.ProxyCommitment, keep func(model.ProxyCommitment) bool) (model.ProxyCommitment, bool) {
	var best model.ProxyCommitment
	found := false
	for _, p := range proxies {
		if !keep(p) {
			continue
		}
		if !found || model.ProxyRanksAbove(p, best) {
			best = p
			found = true
		}
	}
	return best, found
}

// ResolveAfterManualBid runs one escalation step after a manual bid has set the
// auction's price and winner. The strongest other proxy whose ceiling exceeds the
// new price counters at exactly one increment, provided its ceiling covers it.
// The result is not fed back into the resolver.
func ResolveAfterManualBid(auction model.Auction, proxies []model.ProxyCommitment) *AutoBid {
	price := auction.Price()
	manualBidder := auction.WinnerID

	challenger, ok := strongestProxy(proxies, func(p model.ProxyCommitment) bool {
		return p.BidderID != manualBidder && p.MaxAmount.GreaterThan(price)
	})
	if !ok {
		return nil
	}

	required := price.Add(auction.MinIncrement)
	if challenger.MaxAmount.LessThan(required) {
		return nil
	}

	return &AutoBid{
		BidderID: challenger.BidderID,
		Amount:   model.NormalizeAmount(decimal.Min(required, challenger.MaxAmount)),
	}
}

// ResolveAfterProxyCommitment decides whether a new or raised ceiling bids immediately.
// The committing bidder only bids when their ceiling beats every competing ceiling;
// an equal competing ceiling keeps priority.
func ResolveAfterProxyCommitment(auction model.Auction, commitment model.ProxyCommitment, proxies []model.ProxyCommitment) *AutoBid {
	if auction.HasWinner() && auction.WinnerID == commitment.BidderID {
		return nil
	}

	price := auction.Price()
	required := price.Add(auction.MinIncrement)
	if commitment.MaxAmount.LessThan(required) {
		return nil
	}

	target := required
	best, ok := strongestProxy(proxies, func(p model.ProxyCommitment) bool {
		return p.BidderID != commitment.BidderID
	})
	if ok {
		switch {
		case best.MaxAmount.GreaterThanOrEqual(commitment.MaxAmount):
			return nil
		case best.MaxAmount.GreaterThanOrEqual(price):
			target = decimal.Min(best.MaxAmount.Add(auction.MinIncrement), commitment.MaxAmount)
		}
	}

	// a competitor ceiling below the current price must never produce a sub-minimum bid
	if target.LessThan(required) {
		return nil
	}

	return &AutoBid{
		BidderID: commitment.BidderID,
		Amount:   model.NormalizeAmount(target),
	}
}
