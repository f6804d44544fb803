package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSortBidsByAmount(t *testing.T) {
	now := time.Now().UTC()
	bids := []Bid{
		{BidID: "b1", Amount: decimal.NewFromInt(100), CreatedAt: now, Seq: 1},
		{BidID: "b2", Amount: decimal.NewFromInt(130), CreatedAt: now.Add(2 * time.Second), Seq: 3},
		{BidID: "b3", Amount: decimal.NewFromInt(120), CreatedAt: now.Add(time.Second), Seq: 2},
		{BidID: "b4", Amount: decimal.NewFromInt(130), CreatedAt: now.Add(2 * time.Second), Seq: 4},
	}

	SortBidsByAmount(bids)

	ids := make([]string, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.BidID)
	}
	require.Equal(t, []string{"b2", "b4", "b3", "b1"}, ids)
}

func TestSortBidsByRecent(t *testing.T) {
	now := time.Now().UTC()
	bids := []Bid{
		{BidID: "old", CreatedAt: now.Add(-time.Hour), Seq: 1},
		{BidID: "manual", CreatedAt: now, Seq: 2},
		{BidID: "auto", CreatedAt: now, Seq: 3},
	}

	SortBidsByRecent(bids)

	require.Equal(t, "auto", bids[0].BidID)
	require.Equal(t, "manual", bids[1].BidID)
	require.Equal(t, "old", bids[2].BidID)
}

func TestSortProxies_FirstRegisteredWinsTie(t *testing.T) {
	now := time.Now().UTC()
	proxies := []ProxyCommitment{
		{CommitmentID: "late", MaxAmount: decimal.NewFromInt(200), CreatedAt: now.Add(time.Minute)},
		{CommitmentID: "low", MaxAmount: decimal.NewFromInt(150), CreatedAt: now.Add(-time.Minute)},
		{CommitmentID: "early", MaxAmount: decimal.NewFromInt(200), CreatedAt: now},
	}

	SortProxies(proxies)

	require.Equal(t, "early", proxies[0].CommitmentID)
	require.Equal(t, "late", proxies[1].CommitmentID)
	require.Equal(t, "low", proxies[2].CommitmentID)
}

func TestAuction_PriceAndMinimum(t *testing.T) {
	a := Auction{StartPrice: decimal.NewFromInt(100), MinIncrement: decimal.NewFromInt(10)}
	require.True(t, a.Price().Equal(decimal.NewFromInt(100)), "price falls back to start price")
	require.True(t, a.NextMinimum().Equal(decimal.NewFromInt(110)))

	a.CurrentPrice = decimal.NewNullDecimal(decimal.NewFromInt(130))
	require.True(t, a.NextMinimum().Equal(decimal.NewFromInt(140)))
	require.False(t, a.HasWinner())
}

func TestNormalizeAmount(t *testing.T) {
	require.Equal(t, "10.13", NormalizeAmount(decimal.RequireFromString("10.125")).String())
	require.Equal(t, "99.99", NormalizeAmount(decimal.RequireFromString("99.99")).String())
}
