package helpers

import (
	model "bidding-engine/internal/models"
	"time"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string  `json:"auctionId" binding:"required"`
	BidAmount float64 `json:"bidAmount" binding:"required,gt=0,lte=9999999999.99"`
}

type PlaceProxyBidRequest struct {
	AuctionID string  `json:"auctionId" binding:"required"`
	MaxAmount float64 `json:"maxAmount" binding:"required,gt=0,lte=9999999999.99"`
}

type CreateAuctionRequest struct {
	ProductID    string    `json:"productId" binding:"required"`
	StartPrice   float64   `json:"startPrice" binding:"gte=0,lte=9999999999.99"`
	MinIncrement float64   `json:"minIncrement" binding:"required,gt=0,lte=9999999999.99"`
	StartTime    time.Time `json:"startTime" binding:"required"`
	EndTime      time.Time `json:"endTime" binding:"required"`
}

type BidResponse struct {
	BidID     string  `json:"bidId"`
	AuctionID string  `json:"auctionId"`
	BidderID  string  `json:"bidderId"`
	Amount    float64 `json:"amount"`
	Kind      string  `json:"kind"`
	Seq       int64   `json:"seq"`
	CreatedAt string  `json:"createdAt"`
}

type AuctionResponse struct {
	AuctionID    string  `json:"auctionId"`
	ProductID    string  `json:"productId"`
	SellerID     string  `json:"sellerId"`
	StartPrice   float64 `json:"startPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	MinIncrement float64 `json:"minIncrement"`
	NextMinimum  float64 `json:"nextMinimumBid"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	Status       string  `json:"status"`
	WinnerID     *string `json:"winnerId"`
	BidCount     int64   `json:"bidCount"`
}

type ProxyBidResponse struct {
	CommitmentID string  `json:"commitmentId"`
	AuctionID    string  `json:"auctionId"`
	BidderID     string  `json:"bidderId"`
	MaxAmount    float64 `json:"maxAmount"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

type PlaceBidResponse struct {
	Bid     BidResponse     `json:"bid"`
	AutoBid *BidResponse    `json:"autoBid,omitempty"`
	Auction AuctionResponse `json:"auction"`
}

type PlaceProxyBidResponse struct {
	Commitment ProxyBidResponse `json:"commitment"`
	AutoBid    *BidResponse     `json:"autoBid,omitempty"`
	Auction    AuctionResponse  `json:"auction"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func ToBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount.InexactFloat64(),
		Kind:      string(b.Kind),
		Seq:       b.Seq,
		CreatedAt: formatTime(b.CreatedAt),
	}
}

func ToBidResponses(bids []model.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, ToBidResponse(b))
	}
	return out
}

func toAutoBid(b *model.Bid) *BidResponse {
	if b == nil {
		return nil
	}
	resp := ToBidResponse(*b)
	return &resp
}

func ToAuctionResponse(a model.Auction) AuctionResponse {
	resp := AuctionResponse{
		AuctionID:    a.AuctionID,
		ProductID:    a.ProductID,
		SellerID:     a.SellerID,
		StartPrice:   a.StartPrice.InexactFloat64(),
		CurrentPrice: a.Price().InexactFloat64(),
		MinIncrement: a.MinIncrement.InexactFloat64(),
		NextMinimum:  a.NextMinimum().InexactFloat64(),
		StartTime:    formatTime(a.StartTime),
		EndTime:      formatTime(a.EndTime),
		Status:       string(a.Status),
		BidCount:     a.BidCount,
	}
	if a.HasWinner() {
		winner := a.WinnerID
		resp.WinnerID = &winner
	}
	return resp
}

func ToAuctionResponses(auctions []model.Auction) []AuctionResponse {
	out := make([]AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, ToAuctionResponse(a))
	}
	return out
}

func ToProxyBidResponse(p model.ProxyCommitment) ProxyBidResponse {
	return ProxyBidResponse{
		CommitmentID: p.CommitmentID,
		AuctionID:    p.AuctionID,
		BidderID:     p.BidderID,
		MaxAmount:    p.MaxAmount.InexactFloat64(),
		CreatedAt:    formatTime(p.CreatedAt),
		UpdatedAt:    formatTime(p.UpdatedAt),
	}
}

func ToPlaceBidResponse(r model.BidResult) PlaceBidResponse {
	return PlaceBidResponse{
		Bid:     ToBidResponse(r.Bid),
		AutoBid: toAutoBid(r.AutoBid),
		Auction: ToAuctionResponse(r.Auction),
	}
}

func ToPlaceProxyBidResponse(r model.ProxyResult) PlaceProxyBidResponse {
	return PlaceProxyBidResponse{
		Commitment: ToProxyBidResponse(r.Commitment),
		AutoBid:    toAutoBid(r.AutoBid),
		Auction:    ToAuctionResponse(r.Auction),
	}
}
