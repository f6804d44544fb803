package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	bidding "bidding-engine/internal/biddingService"
	"bidding-engine/internal/lifecycle"
	"bidding-engine/internal/repository"
	"bidding-engine/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sellerID = "seller"

// testEnv bundles a router with direct access to the auction manager for seeding
type testEnv struct {
	router   *gin.Engine
	auctions *lifecycle.Manager
}

// SetupTestEnv initializes the router with an in-memory repository for integration testing.
func SetupTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryRepo()
	service := bidding.NewBiddingService(repo)
	auctions := lifecycle.NewManager(service, repo, nil)
	router := server.SetupRouter(server.Dependencies{Bidding: service, Auctions: auctions})
	return &testEnv{router: router, auctions: auctions}
}

// SeedLiveAuction creates and starts an auction owned by sellerID
func (e *testEnv) SeedLiveAuction(t *testing.T, startPrice, minIncrement string) string {
	t.Helper()
	now := time.Now().UTC()
	a, err := e.auctions.Create(context.Background(), lifecycle.CreateRequest{
		ProductID:    "product",
		SellerID:     sellerID,
		StartPrice:   decimal.RequireFromString(startPrice),
		MinIncrement: decimal.RequireFromString(minIncrement),
		StartTime:    now.Add(-time.Minute),
		EndTime:      now.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = e.auctions.Start(context.Background(), a.AuctionID)
	require.NoError(t, err)
	return a.AuctionID
}

// ExecuteRequestAndParse executes an HTTP request as userID and parses the response envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, userID string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// data returns the envelope's data object
func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", resp)
	return d
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
}

