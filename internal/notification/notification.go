package notification

import (
	"bidding-engine/utils"
	"context"
	"errors"
	"time"
)

// EventType names what happened to the recipient
type EventType string

const (
	EventBidPlaced       EventType = "BID_PLACED"
	EventAutoBidPlaced   EventType = "AUTO_BID_PLACED"
	EventOutbid          EventType = "OUTBID"
	EventProxyRegistered EventType = "PROXY_REGISTERED"
	EventAuctionCreated  EventType = "AUCTION_SCHEDULED"
	EventAuctionLive     EventType = "AUCTION_LIVE"
	EventAuctionEnded    EventType = "AUCTION_ENDED"
	EventAuctionWon      EventType = "AUCTION_WON"
)

// Event is the payload delivered to a user
type Event struct {
	Type       EventType `json:"type"`
	AuctionID  string    `json:"auctionId"`
	BidID      string    `json:"bidId,omitempty"`
	BidderID   string    `json:"bidderId,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	Price      string    `json:"currentPrice,omitempty"`
	WinnerID   string    `json:"winnerId,omitempty"`
	Status     string    `json:"status,omitempty"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Broadcast reports whether watchers of the auction care about the event
func (e Event) Broadcast() bool {
	switch e.Type {
	case EventBidPlaced, EventAutoBidPlaced, EventAuctionLive, EventAuctionEnded:
		return true
	}
	return false
}

// Sink delivers an event to one user
type Sink interface {
	Notify(ctx context.Context, userID string, event Event) error
}

// LogSink writes notifications to the structured log
type LogSink struct{}

func (LogSink) Notify(ctx context.Context, userID string, event Event) error {
	utils.Info("notification", map[string]any{
		"user_id":    userID,
		"type":       string(event.Type),
		"auction_id": event.AuctionID,
		"amount":     event.Amount,
		"message":    event.Message,
	})
	return nil
}

// Fanout delivers to every sink and joins their errors
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, userID string, event Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Notify(ctx, userID, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards everything
type Nop struct{}

func (Nop) Notify(context.Context, string, Event) error { return nil }
