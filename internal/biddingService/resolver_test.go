package bidding

import (
	model "bidding-engine/internal/models"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func proxy(bidder, max string, registeredAt time.Time) model.ProxyCommitment {
	return model.ProxyCommitment{
		CommitmentID: "p-" + bidder,
		AuctionID:    "a1",
		BidderID:     bidder,
		MaxAmount:    dec(max),
		CreatedAt:    registeredAt,
		UpdatedAt:    registeredAt,
	}
}

func atPrice(price, inc, winner string) model.Auction {
	a := liveAuction("a1", "seller", "100", inc)
	a.CurrentPrice = decimal.NewNullDecimal(dec(price))
	a.WinnerID = winner
	return a
}

func TestResolveAfterManualBid(t *testing.T) {
	early := testNow.Add(-2 * time.Minute)
	late := testNow.Add(-time.Minute)

	tests := []struct {
		name       string
		auction    model.Auction
		proxies    []model.ProxyCommitment
		wantBidder string
		wantAmount string
	}{
		{
			name:    "no_proxies",
			auction: atPrice("120", "10", "M"),
		},
		{
			name:    "own_proxy_ignored",
			auction: atPrice("120", "10", "M"),
			proxies: []model.ProxyCommitment{proxy("M", "500", early)},
		},
		{
			name:       "strongest_answers_one_increment",
			auction:    atPrice("120", "10", "M"),
			proxies:    []model.ProxyCommitment{proxy("A", "200", early), proxy("B", "150", early)},
			wantBidder: "A",
			wantAmount: "130",
		},
		{
			name:    "ceiling_below_required",
			auction: atPrice("120", "10", "M"),
			proxies: []model.ProxyCommitment{proxy("D", "125", early)},
		},
		{
			name:       "ceiling_exactly_required",
			auction:    atPrice("120", "10", "M"),
			proxies:    []model.ProxyCommitment{proxy("D", "130", early)},
			wantBidder: "D",
			wantAmount: "130",
		},
		{
			name:    "ceiling_equal_to_price_does_not_qualify",
			auction: atPrice("120", "10", "M"),
			proxies: []model.ProxyCommitment{proxy("D", "120", early)},
		},
		{
			name:       "tie_goes_to_first_registered",
			auction:    atPrice("120", "10", "M"),
			proxies:    []model.ProxyCommitment{proxy("Late", "200", late), proxy("Early", "200", early)},
			wantBidder: "Early",
			wantAmount: "130",
		},
		{
			name:    "single_step_only_checks_strongest",
			auction: atPrice("120", "10", "M"),
			// strongest cannot afford the increment; weaker ones are not consulted
			proxies: []model.ProxyCommitment{proxy("A", "129", early), proxy("B", "125", early)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAfterManualBid(tt.auction, tt.proxies)
			if tt.wantBidder == "" {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tt.wantBidder, got.BidderID)
			require.True(t, got.Amount.Equal(dec(tt.wantAmount)), "amount %s", got.Amount)
		})
	}
}

func TestResolveAfterProxyCommitment(t *testing.T) {
	early := testNow.Add(-2 * time.Minute)
	now := testNow

	tests := []struct {
		name       string
		auction    model.Auction
		commitment model.ProxyCommitment
		proxies    []model.ProxyCommitment
		wantAmount string
	}{
		{
			name:       "no_competitor_bids_required",
			auction:    atPrice("100", "10", ""),
			commitment: proxy("A", "200", now),
			wantAmount: "110",
		},
		{
			name:       "already_winner",
			auction:    atPrice("110", "10", "A"),
			commitment: proxy("A", "300", now),
		},
		{
			name:       "ceiling_below_required",
			auction:    atPrice("110", "10", "A"),
			commitment: proxy("B", "115", now),
		},
		{
			name:       "stronger_competitor",
			auction:    atPrice("110", "10", "A"),
			commitment: proxy("B", "150", now),
			proxies:    []model.ProxyCommitment{proxy("A", "200", early)},
		},
		{
			name:       "equal_competitor_keeps_priority",
			auction:    atPrice("110", "10", "A"),
			commitment: proxy("B", "200", now),
			proxies:    []model.ProxyCommitment{proxy("A", "200", early)},
		},
		{
			name:       "beats_competitor_by_one_increment",
			auction:    atPrice("110", "10", "A"),
			commitment: proxy("B", "300", now),
			proxies:    []model.ProxyCommitment{proxy("A", "200", early)},
			wantAmount: "210",
		},
		{
			name:       "capped_at_own_ceiling",
			auction:    atPrice("110", "10", "A"),
			commitment: proxy("B", "205", now),
			proxies:    []model.ProxyCommitment{proxy("A", "200", early)},
			wantAmount: "205",
		},
		{
			name:       "stale_competitor_below_price",
			auction:    atPrice("150", "10", "M"),
			commitment: proxy("B", "300", now),
			proxies:    []model.ProxyCommitment{proxy("A", "120", early)},
			wantAmount: "160",
		},
		{
			name:       "own_previous_commitment_ignored",
			auction:    atPrice("110", "10", "M"),
			commitment: proxy("B", "300", now),
			proxies:    []model.ProxyCommitment{proxy("B", "150", early)},
			wantAmount: "120",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAfterProxyCommitment(tt.auction, tt.commitment, tt.proxies)
			if tt.wantAmount == "" {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tt.commitment.BidderID, got.BidderID)
			require.True(t, got.Amount.Equal(dec(tt.wantAmount)), "amount %s", got.Amount)
		})
	}
}
