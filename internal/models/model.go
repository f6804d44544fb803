package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places every amount is normalised to
const MoneyPlaces int32 = 2

// MaxAmount is the largest amount a decimal(12,2) column can hold
var MaxAmount = decimal.RequireFromString("9999999999.99")

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	StatusScheduled AuctionStatus = "SCHEDULED"
	StatusLive      AuctionStatus = "LIVE"
	StatusEnded     AuctionStatus = "ENDED"
	StatusNoBids    AuctionStatus = "NO_BIDS"
)

// BidKind distinguishes bids typed in by a bidder from bids placed by the resolver
type BidKind string

const (
	KindManual    BidKind = "MANUAL"
	KindProxyAuto BidKind = "PROXY_AUTO"
)

// Auction is an immutable snapshot of one auction's price and winner.
// Version is bumped on every committed change and guards optimistic updates.
type Auction struct {
	AuctionID    string              `json:"auctionId" gorm:"column:id;primaryKey;type:varchar(64)"`
	ProductID    string              `json:"productId" gorm:"type:varchar(64);not null"`
	SellerID     string              `json:"sellerId" gorm:"type:varchar(64);not null;index"`
	StartPrice   decimal.Decimal     `json:"startPrice" gorm:"type:decimal(12,2);not null"`
	CurrentPrice decimal.NullDecimal `json:"currentPrice" gorm:"type:decimal(12,2)"`
	MinIncrement decimal.Decimal     `json:"minIncrement" gorm:"type:decimal(12,2);not null"`
	StartTime    time.Time           `json:"startTime" gorm:"not null"`
	EndTime      time.Time           `json:"endTime" gorm:"not null"`
	Status       AuctionStatus       `json:"status" gorm:"type:varchar(16);not null;index"`
	WinnerID     string              `json:"winnerId,omitempty" gorm:"type:varchar(64)"`
	BidCount     int64               `json:"bidCount" gorm:"not null;default:0"`
	Version      int64               `json:"version" gorm:"not null;default:0"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// TableName pins the gorm table name
func (Auction) TableName() string {
	return "auctions"
}

// Price returns the current price, falling back to the start price before the auction goes live
func (a Auction) Price() decimal.Decimal {
	if a.CurrentPrice.Valid {
		return a.CurrentPrice.Decimal
	}
	return a.StartPrice
}

// NextMinimum is the smallest amount a new bid must reach
func (a Auction) NextMinimum() decimal.Decimal {
	return a.Price().Add(a.MinIncrement)
}

// HasWinner reports whether any bid has been accepted
func (a Auction) HasWinner() bool {
	return a.WinnerID != ""
}

// Bid is one immutable ledger entry. Seq orders the ledger of a single auction.
type Bid struct {
	BidID     string          `json:"bidId" gorm:"column:id;primaryKey;type:varchar(64)"`
	AuctionID string          `json:"auctionId" gorm:"type:varchar(64);not null;index:idx_bids_auction_amount,priority:1"`
	BidderID  string          `json:"bidderId" gorm:"type:varchar(64);not null;index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null;index:idx_bids_auction_amount,priority:2"`
	Kind      BidKind         `json:"kind" gorm:"type:varchar(20);not null"`
	Seq       int64           `json:"seq" gorm:"not null"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (Bid) TableName() string {
	return "bids"
}

// ProxyCommitment is a bidder's standing ceiling on one auction
type ProxyCommitment struct {
	CommitmentID string          `json:"commitmentId" gorm:"column:id;primaryKey;type:varchar(64)"`
	AuctionID    string          `json:"auctionId" gorm:"type:varchar(64);not null;uniqueIndex:uq_proxy_auction_bidder,priority:1"`
	BidderID     string          `json:"bidderId" gorm:"type:varchar(64);not null;uniqueIndex:uq_proxy_auction_bidder,priority:2"`
	MaxAmount    decimal.Decimal `json:"maxAmount" gorm:"type:decimal(12,2);not null"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (ProxyCommitment) TableName() string {
	return "proxy_commitments"
}

// NormalizeAmount rounds an amount to currency precision
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ExceedsMaxAmount reports whether d cannot be stored once normalised
func ExceedsMaxAmount(d decimal.Decimal) bool {
	return NormalizeAmount(d).GreaterThan(MaxAmount)
}
