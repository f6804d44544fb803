package models

// BidResult is the outcome of an accepted manual bid. AutoBid is set when a
// proxy holder countered immediately; Auction is the state after both.
type BidResult struct {
	Bid     Bid     `json:"bid"`
	AutoBid *Bid    `json:"autoBid,omitempty"`
	Auction Auction `json:"auction"`
}

// ProxyResult is the outcome of an accepted proxy commitment
type ProxyResult struct {
	Commitment ProxyCommitment `json:"commitment"`
	AutoBid    *Bid            `json:"autoBid,omitempty"`
	Auction    Auction         `json:"auction"`
}
