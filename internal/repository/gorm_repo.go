package repository

import (
	"bidding-engine/internal/biddingerrors"
	model "bidding-engine/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepo is a MySQL-backed implementation of AuctionDB.
// Auction updates are optimistic: the row is only written while its version still matches.
type GormRepo struct {
	db *gorm.DB
}

// OpenMySQL connects to MySQL, sizes the pool and migrates the schema.
// parseTime is always enabled so DATETIME columns scan into time.Time.
func OpenMySQL(dsn string) (*GormRepo, error) {
	dsn, err := withParseTime(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.Auction{}, &model.Bid{}, &model.ProxyCommitment{}); err != nil {
		return nil, fmt.Errorf("failed to migrate bidding schema: %w", err)
	}
	return NewGormRepo(db), nil
}

func withParseTime(dsn string) (string, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// NewGormRepo wraps an already opened gorm handle
func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

// CreateAuction inserts a new auction row
func (r *GormRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	if auction.AuctionID == "" {
		return fmt.Errorf("create auction: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}
	if err := r.db.WithContext(ctx).Create(&auction).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create auction %s: %w", auction.AuctionID, biddingerrors.ErrAuctionExists)
		}
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, err)
	}
	return nil
}

// GetAuction loads one auction row
func (r *GormRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	var a model.Auction
	err := r.db.WithContext(ctx).Where("id = ?", auctionID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// ListAuctionsByStatus returns auctions in a status, soonest ending first
func (r *GormRepo) ListAuctionsByStatus(ctx context.Context, status model.AuctionStatus) ([]model.Auction, error) {
	var out []model.Auction
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("end_time ASC").Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list auctions with status %s: %w", status, err)
	}
	return out, nil
}

// Commit writes the auction snapshot, new bids and proxy upsert in one transaction.
// A version mismatch rolls the transaction back with ErrConflict.
func (r *GormRepo) Commit(ctx context.Context, c Commit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a := c.Auction
		res := tx.Model(&model.Auction{}).
			Where("id = ? AND version = ?", a.AuctionID, c.ExpectedVersion).
			Updates(map[string]any{
				"current_price": a.CurrentPrice,
				"status":        a.Status,
				"winner_id":     a.WinnerID,
				"bid_count":     a.BidCount,
				"version":       a.Version,
				"updated_at":    a.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("commit auction %s: %w", a.AuctionID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("commit auction %s at version %d: %w", a.AuctionID, c.ExpectedVersion, biddingerrors.ErrConflict)
		}

		if len(c.Bids) > 0 {
			if err := tx.Create(&c.Bids).Error; err != nil {
				return fmt.Errorf("append bids for auction %s: %w", a.AuctionID, err)
			}
		}

		if c.Proxy != nil {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "auction_id"}, {Name: "bidder_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"max_amount", "updated_at"}),
			}).Create(c.Proxy).Error
			if err != nil {
				return fmt.Errorf("upsert proxy for auction %s user %s: %w", a.AuctionID, c.Proxy.BidderID, err)
			}
		}
		return nil
	})
}

// GetBidsByAuction returns all bids for an auction, highest amount first
func (r *GormRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	var bids []model.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("amount DESC").Order("created_at ASC").Order("seq ASC").
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return bids, nil
}

// GetBidsByBidder returns all bids placed by a bidder, most recent first
func (r *GormRepo) GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	var bids []model.Bid
	err := r.db.WithContext(ctx).
		Where("bidder_id = ?", bidderID).
		Order("created_at DESC").Order("seq DESC").
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("get bids for user %s: %w", bidderID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for user %s: %w", bidderID, biddingerrors.ErrUserNoBids)
	}
	return bids, nil
}

// GetTopBid returns the highest bid for an auction
func (r *GormRepo) GetTopBid(ctx context.Context, auctionID string) (model.Bid, error) {
	var bid model.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("amount DESC").Order("created_at ASC").Order("seq ASC").
		Take(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Bid{}, fmt.Errorf("get top bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get top bid for auction %s: %w", auctionID, err)
	}
	return bid, nil
}

// GetProxy returns a bidder's commitment on an auction
func (r *GormRepo) GetProxy(ctx context.Context, auctionID, bidderID string) (model.ProxyCommitment, error) {
	var p model.ProxyCommitment
	err := r.db.WithContext(ctx).
		Where("auction_id = ? AND bidder_id = ?", auctionID, bidderID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProxyCommitment{}, fmt.Errorf("get proxy for auction %s user %s: %w", auctionID, bidderID, biddingerrors.ErrProxyNotFound)
	}
	if err != nil {
		return model.ProxyCommitment{}, fmt.Errorf("get proxy for auction %s user %s: %w", auctionID, bidderID, err)
	}
	return p, nil
}

// GetProxiesByAuction returns all commitments on an auction, strongest first
func (r *GormRepo) GetProxiesByAuction(ctx context.Context, auctionID string) ([]model.ProxyCommitment, error) {
	var out []model.ProxyCommitment
	if err := r.db.WithContext(ctx).Where("auction_id = ?", auctionID).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("get proxies for auction %s: %w", auctionID, err)
	}
	// ordering is applied in Go so ties follow the same comparator as the memory store
	model.SortProxies(out)
	return out, nil
}
