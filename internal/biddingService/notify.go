package bidding

import (
	"bidding-engine/internal/models"
	"bidding-engine/internal/notification"
	"bidding-engine/utils"
	"context"
	"fmt"
)

func bidEvent(typ notification.EventType, a models.Auction, bid models.Bid, message string) notification.Event {
	return notification.Event{
		Type:       typ,
		AuctionID:  a.AuctionID,
		BidID:      bid.BidID,
		BidderID:   bid.BidderID,
		Amount:     bid.Amount.StringFixed(models.MoneyPlaces),
		Price:      a.Price().StringFixed(models.MoneyPlaces),
		WinnerID:   a.WinnerID,
		Status:     string(a.Status),
		Message:    message,
		OccurredAt: bid.CreatedAt,
	}
}

func (s *BiddingService) notifyManualBid(ctx context.Context, before models.Auction, res models.BidResult) {
	manual := res.Bid
	s.send(ctx, manual.BidderID, bidEvent(notification.EventBidPlaced, res.Auction, manual,
		fmt.Sprintf("your bid of %s was accepted", manual.Amount.StringFixed(models.MoneyPlaces))))

	previous := before.WinnerID
	if previous != "" && previous != manual.BidderID && (res.AutoBid == nil || res.AutoBid.BidderID != previous) {
		s.send(ctx, previous, bidEvent(notification.EventOutbid, res.Auction, manual,
			fmt.Sprintf("you have been outbid at %s", manual.Amount.StringFixed(models.MoneyPlaces))))
	}

	if auto := res.AutoBid; auto != nil {
		s.send(ctx, auto.BidderID, bidEvent(notification.EventAutoBidPlaced, res.Auction, *auto,
			fmt.Sprintf("your proxy bid %s on your behalf", auto.Amount.StringFixed(models.MoneyPlaces))))
		s.send(ctx, manual.BidderID, bidEvent(notification.EventOutbid, res.Auction, *auto,
			fmt.Sprintf("a proxy bid immediately outbid you at %s", auto.Amount.StringFixed(models.MoneyPlaces))))
	}
}

func (s *BiddingService) notifyProxyBid(ctx context.Context, before models.Auction, res models.ProxyResult) {
	c := res.Commitment
	s.send(ctx, c.BidderID, notification.Event{
		Type:       notification.EventProxyRegistered,
		AuctionID:  c.AuctionID,
		BidderID:   c.BidderID,
		Amount:     c.MaxAmount.StringFixed(models.MoneyPlaces),
		Price:      res.Auction.Price().StringFixed(models.MoneyPlaces),
		WinnerID:   res.Auction.WinnerID,
		Status:     string(res.Auction.Status),
		Message:    fmt.Sprintf("proxy bid registered up to %s", c.MaxAmount.StringFixed(models.MoneyPlaces)),
		OccurredAt: c.UpdatedAt,
	})

	auto := res.AutoBid
	if auto == nil {
		return
	}
	s.send(ctx, auto.BidderID, bidEvent(notification.EventAutoBidPlaced, res.Auction, *auto,
		fmt.Sprintf("your proxy bid %s on your behalf", auto.Amount.StringFixed(models.MoneyPlaces))))
	if previous := before.WinnerID; previous != "" && previous != auto.BidderID {
		s.send(ctx, previous, bidEvent(notification.EventOutbid, res.Auction, *auto,
			fmt.Sprintf("you have been outbid at %s", auto.Amount.StringFixed(models.MoneyPlaces))))
	}
}

// send delivers one notification. Failures are logged and never reach the caller.
func (s *BiddingService) send(ctx context.Context, userID string, event notification.Event) {
	if err := s.notifier.Notify(ctx, userID, event); err != nil {
		utils.Error("failed to deliver notification", map[string]any{
			"user_id":    userID,
			"type":       string(event.Type),
			"auction_id": event.AuctionID,
			"error":      err.Error(),
		})
	}
}
