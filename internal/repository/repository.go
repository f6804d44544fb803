package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

import (
	"bidding-engine/internal/biddingerrors"
	model "bidding-engine/internal/models"
	"context"
	"fmt"
	"sync"
)

// Commit is one atomic write of an auction snapshot together with the ledger
// entries and the proxy commitment produced by the same critical section.
type Commit struct {
	Auction         model.Auction
	ExpectedVersion int64
	Bids            []model.Bid
	Proxy           *model.ProxyCommitment
}

// AuctionDB defines the storage interface for the bidding engine
type AuctionDB interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctionsByStatus(ctx context.Context, status model.AuctionStatus) ([]model.Auction, error)
	Commit(ctx context.Context, c Commit) error
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error)
	GetTopBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetProxy(ctx context.Context, auctionID, bidderID string) (model.ProxyCommitment, error)
	GetProxiesByAuction(ctx context.Context, auctionID string) ([]model.ProxyCommitment, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu         sync.RWMutex
	auctions   map[string]model.Auction                    // key: auctionID -> value: latest snapshot
	bids       map[string][]model.Bid                      // key: auctionID -> value: ledger in append order
	bidderBids map[string][]model.Bid                      // key: bidderID -> value: bids placed by that bidder
	proxies    map[string]map[string]model.ProxyCommitment // key: auctionID -> bidderID -> commitment
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:   make(map[string]model.Auction),
		bids:       make(map[string][]model.Bid),
		bidderBids: make(map[string][]model.Bid),
		proxies:    make(map[string]map[string]model.ProxyCommitment),
	}
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if auction.AuctionID == "" {
		return fmt.Errorf("create auction: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}
	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, biddingerrors.ErrAuctionExists)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns the latest snapshot of an auction
func (r *MemoryRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// ListAuctionsByStatus returns all auctions in the given status, soonest ending first
func (r *MemoryRepo) ListAuctionsByStatus(ctx context.Context, status model.AuctionStatus) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Auction, 0)
	for _, a := range r.auctions {
		if a.Status == status {
			out = append(out, a)
		}
	}
	model.SortAuctionsByEnd(out)
	return out, nil
}

// Commit applies an auction snapshot, its new bids and an optional proxy upsert atomically.
// It fails with ErrConflict when the stored version no longer matches ExpectedVersion.
func (r *MemoryRepo) Commit(ctx context.Context, c Commit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.auctions[c.Auction.AuctionID]
	if !ok {
		return fmt.Errorf("commit auction %s: %w", c.Auction.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	if current.Version != c.ExpectedVersion {
		return fmt.Errorf("commit auction %s at version %d (stored %d): %w",
			c.Auction.AuctionID, c.ExpectedVersion, current.Version, biddingerrors.ErrConflict)
	}

	r.auctions[c.Auction.AuctionID] = c.Auction

	for _, bid := range c.Bids {
		r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
		r.bidderBids[bid.BidderID] = append(r.bidderBids[bid.BidderID], bid)
	}

	if c.Proxy != nil {
		byBidder, ok := r.proxies[c.Proxy.AuctionID]
		if !ok {
			byBidder = make(map[string]model.ProxyCommitment)
			r.proxies[c.Proxy.AuctionID] = byBidder
		}
		byBidder[c.Proxy.BidderID] = *c.Proxy
	}

	return nil
}

// GetBidsByAuction returns all bids for an auction, highest amount first
func (r *MemoryRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	out := append([]model.Bid(nil), bids...)
	model.SortBidsByAmount(out)
	return out, nil
}

// GetBidsByBidder returns all bids placed by a bidder, most recent first
func (r *MemoryRepo) GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bidderBids[bidderID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for user %s: %w", bidderID, biddingerrors.ErrUserNoBids)
	}
	out := append([]model.Bid(nil), bids...)
	model.SortBidsByRecent(out)
	return out, nil
}

// GetTopBid returns the highest bid for an auction
func (r *MemoryRepo) GetTopBid(ctx context.Context, auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("get top bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}

	top := bids[0]
	for _, b := range bids[1:] {
		if model.BidRanksAbove(b, top) {
			top = b
		}
	}
	return top, nil
}

// GetProxy returns a bidder's commitment on an auction
func (r *MemoryRepo) GetProxy(ctx context.Context, auctionID, bidderID string) (model.ProxyCommitment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.proxies[auctionID][bidderID]
	if !ok {
		return model.ProxyCommitment{}, fmt.Errorf("get proxy for auction %s user %s: %w", auctionID, bidderID, biddingerrors.ErrProxyNotFound)
	}
	return p, nil
}

// GetProxiesByAuction returns all commitments on an auction, strongest first
func (r *MemoryRepo) GetProxiesByAuction(ctx context.Context, auctionID string) ([]model.ProxyCommitment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.ProxyCommitment, 0, len(r.proxies[auctionID]))
	for _, p := range r.proxies[auctionID] {
		out = append(out, p)
	}
	model.SortProxies(out)
	return out, nil
}
