package perftests

import (
	"context"
	"fmt"
	"testing"
	"time"

	bidding "bidding-engine/internal/biddingService"
	"bidding-engine/internal/lifecycle"
	repository "bidding-engine/internal/repository"
	"bidding-engine/utils"

	"github.com/shopspring/decimal"
)

func init() {
	// per-bid info logs would dominate the timings
	utils.SetLevel("error")
}

// setupService creates a service with numAuctions live auctions starting at 50 with an increment of 1
func setupService(tb testing.TB, numAuctions int) (*bidding.BiddingService, []string) {
	tb.Helper()
	repo := repository.NewMemoryRepo()
	svc := bidding.NewBiddingService(repo, bidding.WithMaxConflictRetries(5))
	auctions := lifecycle.NewManager(svc, repo, nil)

	ctx := context.Background()
	now := time.Now().UTC()
	ids := make([]string, 0, numAuctions)
	for i := 0; i < numAuctions; i++ {
		a, err := auctions.Create(ctx, lifecycle.CreateRequest{
			ProductID:    fmt.Sprintf("product_%d", i),
			SellerID:     "seller",
			StartPrice:   decimal.NewFromInt(50),
			MinIncrement: decimal.NewFromInt(1),
			StartTime:    now,
			EndTime:      now.Add(time.Hour),
		})
		if err != nil {
			tb.Fatalf("failed to create auction: %v", err)
		}
		if _, err := auctions.Start(ctx, a.AuctionID); err != nil {
			tb.Fatalf("failed to start auction: %v", err)
		}
		ids = append(ids, a.AuctionID)
	}
	return svc, ids
}
