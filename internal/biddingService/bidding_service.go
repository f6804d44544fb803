package bidding

import (
	"bidding-engine/internal/biddingerrors"
	"bidding-engine/internal/models"
	"bidding-engine/internal/notification"
	"bidding-engine/internal/repository"
	"bidding-engine/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultMaxConflictRetries = 3

	opManualBid = "manual_bid"
	opProxyBid  = "proxy_bid"
	opLifecycle = "lifecycle"
)

// BiddingService runs every state change of an auction inside a per-auction critical section
type BiddingService struct {
	repo       repository.AuctionDB
	notifier   notification.Sink
	locks      *keyedMutex
	now        func() time.Time
	maxRetries int
	metrics    *engineMetrics
}

// Option configures a BiddingService
type Option func(*options)

type options struct {
	now           func() time.Time
	notifier      notification.Sink
	maxRetries    int
	meterProvider metric.MeterProvider
}

// WithClock overrides the time source used for expiry checks and timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithNotifier(sink notification.Sink) Option {
	return func(o *options) { o.notifier = sink }
}

// WithMaxConflictRetries bounds how often a commit conflict is retried before it is surfaced
func WithMaxConflictRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = provider }
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	o := options{
		now:        func() time.Time { return time.Now().UTC() },
		notifier:   notification.Nop{},
		maxRetries: defaultMaxConflictRetries,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxRetries < 1 {
		o.maxRetries = 1
	}

	return &BiddingService{
		repo:       repo,
		notifier:   o.notifier,
		locks:      newKeyedMutex(),
		now:        o.now,
		maxRetries: o.maxRetries,
		metrics:    newEngineMetrics(o.meterProvider),
	}
}

// PlaceBid validates and records a manual bid, then gives competing proxies one chance to answer it.
// The returned Bid is always the caller's own bid; AutoBid is set when a proxy countered.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.BidResult, error) {
	if auctionID == "" || bidderID == "" {
		return models.BidResult{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return models.BidResult{}, fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}
	if models.ExceedsMaxAmount(amount) {
		return models.BidResult{}, fmt.Errorf("service: %w - bid amount exceeds %s", biddingerrors.ErrInvalidBid, models.MaxAmount)
	}
	amount = models.NormalizeAmount(amount)

	var (
		result models.BidResult
		before models.Auction
	)
	err := s.withAuction(ctx, opManualBid, auctionID, func(a models.Auction) (repository.Commit, error) {
		now := s.now()
		if rej := ValidateManualBid(a, bidderID, amount, now); rej != nil {
			return repository.Commit{}, rej
		}

		next, manual := withBid(a, bidderID, amount, models.KindManual, now)
		proxies, err := s.repo.GetProxiesByAuction(ctx, auctionID)
		if err != nil {
			return repository.Commit{}, fmt.Errorf("service: failed to load proxies for auction %s: %w", auctionID, err)
		}

		bids := []models.Bid{manual}
		var auto *models.Bid
		if counter := ResolveAfterManualBid(next, proxies); counter != nil {
			var autoBid models.Bid
			next, autoBid = withBid(next, counter.BidderID, counter.Amount, models.KindProxyAuto, now)
			bids = append(bids, autoBid)
			auto = &autoBid
		}
		next = nextVersion(a, next)

		before = a
		result = models.BidResult{Bid: manual, AutoBid: auto, Auction: next}
		return repository.Commit{Auction: next, ExpectedVersion: a.Version, Bids: bids}, nil
	})
	if err != nil {
		return models.BidResult{}, err
	}

	s.metrics.recordAccepted(ctx, opManualBid)
	if result.AutoBid != nil {
		s.metrics.recordAutoBid(ctx, opManualBid)
	}
	s.notifyManualBid(ctx, before, result)

	return result, nil
}

// PlaceProxyBid creates or replaces the bidder's ceiling and lets it bid once if it beats every competitor
func (s *BiddingService) PlaceProxyBid(ctx context.Context, auctionID, bidderID string, maxAmount decimal.Decimal) (models.ProxyResult, error) {
	if auctionID == "" || bidderID == "" {
		return models.ProxyResult{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if !maxAmount.IsPositive() {
		return models.ProxyResult{}, fmt.Errorf("service: %w - non-positive max amount", biddingerrors.ErrInvalidBid)
	}
	if models.ExceedsMaxAmount(maxAmount) {
		return models.ProxyResult{}, fmt.Errorf("service: %w - max amount exceeds %s", biddingerrors.ErrInvalidBid, models.MaxAmount)
	}
	maxAmount = models.NormalizeAmount(maxAmount)

	var (
		result models.ProxyResult
		before models.Auction
	)
	err := s.withAuction(ctx, opProxyBid, auctionID, func(a models.Auction) (repository.Commit, error) {
		now := s.now()
		if rej := ValidateProxyCommitment(a, bidderID, maxAmount); rej != nil {
			return repository.Commit{}, rej
		}

		commitment, err := s.upsertCommitment(ctx, auctionID, bidderID, maxAmount, now)
		if err != nil {
			return repository.Commit{}, err
		}
		proxies, err := s.repo.GetProxiesByAuction(ctx, auctionID)
		if err != nil {
			return repository.Commit{}, fmt.Errorf("service: failed to load proxies for auction %s: %w", auctionID, err)
		}

		next := a
		var (
			bids []models.Bid
			auto *models.Bid
		)
		if bid := ResolveAfterProxyCommitment(a, commitment, proxies); bid != nil {
			var autoBid models.Bid
			next, autoBid = withBid(a, bid.BidderID, bid.Amount, models.KindProxyAuto, now)
			bids = append(bids, autoBid)
			auto = &autoBid
		}
		next = nextVersion(a, next)

		before = a
		result = models.ProxyResult{Commitment: commitment, AutoBid: auto, Auction: next}
		return repository.Commit{Auction: next, ExpectedVersion: a.Version, Bids: bids, Proxy: &commitment}, nil
	})
	if err != nil {
		return models.ProxyResult{}, err
	}

	s.metrics.recordAccepted(ctx, opProxyBid)
	if result.AutoBid != nil {
		s.metrics.recordAutoBid(ctx, opProxyBid)
	}
	s.notifyProxyBid(ctx, before, result)

	return result, nil
}

// upsertCommitment builds the commitment to store. An update keeps the original CreatedAt.
func (s *BiddingService) upsertCommitment(ctx context.Context, auctionID, bidderID string, maxAmount decimal.Decimal, now time.Time) (models.ProxyCommitment, error) {
	existing, err := s.repo.GetProxy(ctx, auctionID, bidderID)
	switch {
	case err == nil:
		existing.MaxAmount = maxAmount
		existing.UpdatedAt = now
		return existing, nil
	case errors.Is(err, biddingerrors.ErrProxyNotFound):
		return models.ProxyCommitment{
			CommitmentID: utils.GenerateID(),
			AuctionID:    auctionID,
			BidderID:     bidderID,
			MaxAmount:    maxAmount,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, nil
	default:
		return models.ProxyCommitment{}, fmt.Errorf("service: failed to load proxy for auction %s: %w", auctionID, err)
	}
}

// OpenAuction moves a SCHEDULED auction to LIVE with the price reset to the start price
func (s *BiddingService) OpenAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	var opened models.Auction
	err := s.withAuction(ctx, opLifecycle, auctionID, func(a models.Auction) (repository.Commit, error) {
		if a.Status != models.StatusScheduled {
			return repository.Commit{}, biddingerrors.Reject(biddingerrors.KindInvalidState, biddingerrors.ErrInvalidTransition,
				"cannot start auction in status %s", a.Status)
		}
		next := a
		next.Status = models.StatusLive
		next.CurrentPrice = decimal.NewNullDecimal(a.StartPrice)
		next.WinnerID = ""
		next.UpdatedAt = s.now()
		next = nextVersion(a, next)

		opened = next
		return repository.Commit{Auction: next, ExpectedVersion: a.Version}, nil
	})
	if err != nil {
		return models.Auction{}, err
	}
	return opened, nil
}

// CloseAuction moves a LIVE auction to the status chosen by final.
// Once committed no further bid is accepted.
func (s *BiddingService) CloseAuction(ctx context.Context, auctionID string, final func(models.Auction) models.AuctionStatus) (models.Auction, error) {
	var closed models.Auction
	err := s.withAuction(ctx, opLifecycle, auctionID, func(a models.Auction) (repository.Commit, error) {
		if a.Status != models.StatusLive {
			return repository.Commit{}, biddingerrors.Reject(biddingerrors.KindInvalidState, biddingerrors.ErrInvalidTransition,
				"cannot end auction in status %s", a.Status)
		}
		next := a
		next.Status = final(a)
		next.UpdatedAt = s.now()
		next = nextVersion(a, next)

		closed = next
		return repository.Commit{Auction: next, ExpectedVersion: a.Version}, nil
	})
	if err != nil {
		return models.Auction{}, err
	}
	return closed, nil
}

// withAuction runs step against a fresh snapshot while holding the auction's lock and commits its result.
// A lost optimistic race reloads the snapshot and runs step again, at most maxRetries times.
func (s *BiddingService) withAuction(ctx context.Context, op, auctionID string, step func(models.Auction) (repository.Commit, error)) error {
	if auctionID == "" {
		return fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	unlock := s.locks.Lock(auctionID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("service: %w", err)
		}

		a, err := s.repo.GetAuction(ctx, auctionID)
		if err != nil {
			if errors.Is(err, biddingerrors.ErrAuctionNotFound) {
				return s.reject(ctx, op, biddingerrors.Reject(biddingerrors.KindNotFound, biddingerrors.ErrAuctionNotFound,
					"auction %s", auctionID))
			}
			return fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
		}

		commit, err := step(a)
		if err != nil {
			var rej *biddingerrors.Rejection
			if errors.As(err, &rej) {
				return s.reject(ctx, op, rej)
			}
			return err
		}

		err = s.repo.Commit(ctx, commit)
		if err == nil {
			return nil
		}
		if !errors.Is(err, biddingerrors.ErrConflict) {
			return fmt.Errorf("service: failed to commit auction %s: %w", auctionID, err)
		}

		s.metrics.recordConflict(ctx, op)
		utils.Warn("commit conflict, retrying", map[string]any{
			"auction_id": auctionID,
			"operation":  op,
			"attempt":    attempt,
		})
		if attempt >= s.maxRetries {
			return s.reject(ctx, op, biddingerrors.Reject(biddingerrors.KindConflict, biddingerrors.ErrConflict,
				"gave up after %d attempts", attempt))
		}
	}
}

func (s *BiddingService) reject(ctx context.Context, op string, rej *biddingerrors.Rejection) error {
	s.metrics.recordRejected(ctx, op, rej.Kind.String())
	return rej
}

// GetAuction returns the latest snapshot of an auction
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	a, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// GetBidsForAuction returns the ledger of an auction, highest amount first.
// An auction without bids yields an empty slice.
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	if _, err := s.repo.GetAuction(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if errors.Is(err, biddingerrors.ErrNoBids) {
		return []models.Bid{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}

// GetBidsByBidder returns every bid a user placed, most recent first
func (s *BiddingService) GetBidsByBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	if bidderID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByBidder(ctx, bidderID)
	if errors.Is(err, biddingerrors.ErrUserNoBids) {
		return []models.Bid{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for user %s: %w", bidderID, err)
	}

	return bids, nil
}

// GetTopBid returns the highest bid of an auction
func (s *BiddingService) GetTopBid(ctx context.Context, auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	bid, err := s.repo.GetTopBid(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get top bid for auction %s: %w", auctionID, err)
	}
	return bid, nil
}

// GetProxyBid returns the bidder's standing commitment on an auction
func (s *BiddingService) GetProxyBid(ctx context.Context, auctionID, bidderID string) (models.ProxyCommitment, error) {
	if auctionID == "" || bidderID == "" {
		return models.ProxyCommitment{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}

	p, err := s.repo.GetProxy(ctx, auctionID, bidderID)
	if err != nil {
		return models.ProxyCommitment{}, fmt.Errorf("service: failed to get proxy for auction %s: %w", auctionID, err)
	}
	return p, nil
}
