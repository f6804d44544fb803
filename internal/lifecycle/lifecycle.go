package lifecycle

import (
	"bidding-engine/internal/biddingerrors"
	model "bidding-engine/internal/models"
	"bidding-engine/internal/notification"
	"bidding-engine/internal/repository"
	"bidding-engine/utils"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Engine is the part of the bidding service that owns status changes of a running auction
type Engine interface {
	OpenAuction(ctx context.Context, auctionID string) (model.Auction, error)
	CloseAuction(ctx context.Context, auctionID string, final func(model.Auction) model.AuctionStatus) (model.Auction, error)
}

// CreateRequest describes a new auction
type CreateRequest struct {
	ProductID    string
	SellerID     string
	StartPrice   decimal.Decimal
	MinIncrement decimal.Decimal
	StartTime    time.Time
	EndTime      time.Time
}

// Manager schedules, starts and ends auctions
type Manager struct {
	engine   Engine
	repo     repository.AuctionDB
	notifier notification.Sink
	now      func() time.Time
}

func NewManager(engine Engine, repo repository.AuctionDB, notifier notification.Sink) *Manager {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &Manager{
		engine:   engine,
		repo:     repo,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FinalStatus is NO_BIDS when the price never moved off the start price, ENDED otherwise
func FinalStatus(a model.Auction) model.AuctionStatus {
	if a.Price().Equal(a.StartPrice) {
		return model.StatusNoBids
	}
	return model.StatusEnded
}

// Create stores a SCHEDULED auction
func (m *Manager) Create(ctx context.Context, req CreateRequest) (model.Auction, error) {
	if err := validateCreate(req); err != nil {
		return model.Auction{}, err
	}

	now := m.now()
	a := model.Auction{
		AuctionID:    utils.GenerateID(),
		ProductID:    req.ProductID,
		SellerID:     req.SellerID,
		StartPrice:   model.NormalizeAmount(req.StartPrice),
		MinIncrement: model.NormalizeAmount(req.MinIncrement),
		StartTime:    req.StartTime.UTC(),
		EndTime:      req.EndTime.UTC(),
		Status:       model.StatusScheduled,
		UpdatedAt:    now,
	}

	if err := m.repo.CreateAuction(ctx, a); err != nil {
		return model.Auction{}, fmt.Errorf("lifecycle: failed to create auction: %w", err)
	}

	m.send(ctx, a.SellerID, notification.Event{
		Type:       notification.EventAuctionCreated,
		AuctionID:  a.AuctionID,
		Price:      a.StartPrice.StringFixed(model.MoneyPlaces),
		Status:     string(a.Status),
		Message:    fmt.Sprintf("auction for product %s scheduled", a.ProductID),
		OccurredAt: now,
	})
	return a, nil
}

func validateCreate(req CreateRequest) error {
	switch {
	case req.ProductID == "" || req.SellerID == "":
		return fmt.Errorf("lifecycle: %w - missing productID or sellerID", biddingerrors.ErrInvalidAuction)
	case req.StartPrice.IsNegative():
		return fmt.Errorf("lifecycle: %w - negative start price", biddingerrors.ErrInvalidAuction)
	case !model.NormalizeAmount(req.MinIncrement).IsPositive():
		return fmt.Errorf("lifecycle: %w - min increment must be positive", biddingerrors.ErrInvalidAuction)
	case model.ExceedsMaxAmount(req.StartPrice) || model.ExceedsMaxAmount(req.MinIncrement):
		return fmt.Errorf("lifecycle: %w - amounts must not exceed %s", biddingerrors.ErrInvalidAuction, model.MaxAmount)
	case !req.EndTime.After(req.StartTime):
		return fmt.Errorf("lifecycle: %w - end time must be after start time", biddingerrors.ErrInvalidAuction)
	}
	return nil
}

// Start opens bidding on a SCHEDULED auction
func (m *Manager) Start(ctx context.Context, auctionID string) (model.Auction, error) {
	a, err := m.engine.OpenAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, err
	}

	utils.Info("auction started", map[string]any{"auction_id": a.AuctionID, "start_price": a.StartPrice.String()})
	m.send(ctx, a.SellerID, m.statusEvent(notification.EventAuctionLive, a, "your auction is live"))
	return a, nil
}

// End closes bidding and settles the final status
func (m *Manager) End(ctx context.Context, auctionID string) (model.Auction, error) {
	a, err := m.engine.CloseAuction(ctx, auctionID, FinalStatus)
	if err != nil {
		return model.Auction{}, err
	}

	utils.Info("auction ended", map[string]any{
		"auction_id":  a.AuctionID,
		"status":      string(a.Status),
		"final_price": a.Price().String(),
		"winner_id":   a.WinnerID,
	})

	if a.Status == model.StatusNoBids {
		m.send(ctx, a.SellerID, m.statusEvent(notification.EventAuctionEnded, a, "your auction ended without bids"))
		return a, nil
	}

	price := a.Price().StringFixed(model.MoneyPlaces)
	m.send(ctx, a.SellerID, m.statusEvent(notification.EventAuctionEnded, a,
		fmt.Sprintf("your auction ended at %s", price)))
	if a.HasWinner() {
		m.send(ctx, a.WinnerID, m.statusEvent(notification.EventAuctionWon, a,
			fmt.Sprintf("you won the auction at %s", price)))
	}
	return a, nil
}

// Get returns the latest snapshot of an auction
func (m *Manager) Get(ctx context.Context, auctionID string) (model.Auction, error) {
	a, err := m.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("lifecycle: failed to get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// ListLive returns LIVE auctions, soonest to end first
func (m *Manager) ListLive(ctx context.Context) ([]model.Auction, error) {
	auctions, err := m.repo.ListAuctionsByStatus(ctx, model.StatusLive)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: failed to list live auctions: %w", err)
	}
	if auctions == nil {
		auctions = []model.Auction{}
	}
	return auctions, nil
}

func (m *Manager) statusEvent(typ notification.EventType, a model.Auction, message string) notification.Event {
	return notification.Event{
		Type:       typ,
		AuctionID:  a.AuctionID,
		Price:      a.Price().StringFixed(model.MoneyPlaces),
		WinnerID:   a.WinnerID,
		Status:     string(a.Status),
		Message:    message,
		OccurredAt: a.UpdatedAt,
	}
}

func (m *Manager) send(ctx context.Context, userID string, event notification.Event) {
	if err := m.notifier.Notify(ctx, userID, event); err != nil {
		utils.Error("failed to deliver notification", map[string]any{
			"user_id":    userID,
			"type":       string(event.Type),
			"auction_id": event.AuctionID,
			"error":      err.Error(),
		})
	}
}
