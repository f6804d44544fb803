package models

import "sort"

// BidRanksAbove orders bids by amount descending, earlier bid first on equal amounts.
// Seq breaks ties between bids created in the same instant.
func BidRanksAbove(a, b Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

// BidNewerThan orders bids most recent first
func BidNewerThan(a, b Bid) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq > b.Seq
}

// ProxyRanksAbove orders commitments by ceiling descending; the first registered wins a tie
func ProxyRanksAbove(a, b ProxyCommitment) bool {
	if c := a.MaxAmount.Cmp(b.MaxAmount); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.CommitmentID < b.CommitmentID
}

// SortBidsByAmount sorts in place, highest amount first
func SortBidsByAmount(bids []Bid) {
	sort.SliceStable(bids, func(i, j int) bool { return BidRanksAbove(bids[i], bids[j]) })
}

// SortBidsByRecent sorts in place, most recent first
func SortBidsByRecent(bids []Bid) {
	sort.SliceStable(bids, func(i, j int) bool { return BidNewerThan(bids[i], bids[j]) })
}

// SortProxies sorts in place, strongest commitment first
func SortProxies(proxies []ProxyCommitment) {
	sort.SliceStable(proxies, func(i, j int) bool { return ProxyRanksAbove(proxies[i], proxies[j]) })
}

// SortAuctionsByEnd sorts in place, soonest ending first
func SortAuctionsByEnd(auctions []Auction) {
	sort.SliceStable(auctions, func(i, j int) bool {
		if !auctions[i].EndTime.Equal(auctions[j].EndTime) {
			return auctions[i].EndTime.Before(auctions[j].EndTime)
		}
		return auctions[i].AuctionID < auctions[j].AuctionID
	})
}
