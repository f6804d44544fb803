package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bidding-engine/internal/biddingerrors"
	"bidding-engine/internal/export"
	model "bidding-engine/internal/models"
	"bidding-engine/services/bidding/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// decimalEq matches a decimal argument by value rather than representation
type decimalEq struct{ want decimal.Decimal }

func amountOf(s string) gomock.Matcher {
	return decimalEq{want: decimal.RequireFromString(s)}
}

func (m decimalEq) Matches(x interface{}) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string { return "is " + m.want.String() }

func testRouter(register func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(helpers.BidderIDKey, c.GetHeader(helpers.UserIDHeader))
		c.Next()
	})
	register(router)
	return router
}

func liveAuction(price, winner string) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:    "a1",
		ProductID:    "p1",
		SellerID:     "seller",
		StartPrice:   decimal.NewFromInt(100),
		CurrentPrice: decimal.NewNullDecimal(decimal.RequireFromString(price)),
		MinIncrement: decimal.NewFromInt(10),
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(time.Hour),
		Status:       model.StatusLive,
		WinnerID:     winner,
		BidCount:     1,
	}
}

func newBid(bidder, amount string, kind model.BidKind) model.Bid {
	return model.Bid{
		BidID:     uuid.NewString(),
		AuctionID: "a1",
		BidderID:  bidder,
		Amount:    decimal.RequireFromString(amount),
		Kind:      kind,
		Seq:       1,
		CreatedAt: time.Now().UTC(),
	}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// Test PlaceBidHandler
func TestPlaceBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)
	router := testRouter(func(r *gin.Engine) { r.POST("/api/bids", handler.PlaceBidHandler) })

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		validateData   func(t *testing.T, data map[string]any)
	}{
		{
			name:        "success_manual_only",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", BidAmount: 110},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a1", "user1", amountOf("110")).
					Return(model.BidResult{
						Bid:     newBid("user1", "110", model.KindManual),
						Auction: liveAuction("110", "user1"),
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid placed successfully",
			validateData: func(t *testing.T, data map[string]any) {
				bid := data["bid"].(map[string]any)
				_, parseErr := uuid.Parse(bid["bidId"].(string))
				require.NoError(t, parseErr, "bidId should be a valid UUID")
				require.Equal(t, 110.0, bid["amount"])
				require.Equal(t, "MANUAL", bid["kind"])
				require.NotContains(t, data, "autoBid")
				auction := data["auction"].(map[string]any)
				require.Equal(t, "user1", auction["winnerId"])
				require.Equal(t, 120.0, auction["nextMinimumBid"])
			},
		},
		{
			name:        "success_with_auto_bid",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", BidAmount: 120},
			mockSetup: func() {
				auto := newBid("proxyHolder", "130", model.KindProxyAuto)
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a1", "user1", amountOf("120")).
					Return(model.BidResult{
						Bid:     newBid("user1", "120", model.KindManual),
						AutoBid: &auto,
						Auction: liveAuction("130", "proxyHolder"),
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid placed successfully",
			validateData: func(t *testing.T, data map[string]any) {
				require.Equal(t, 120.0, data["bid"].(map[string]any)["amount"])
				auto := data["autoBid"].(map[string]any)
				require.Equal(t, "PROXY_AUTO", auto["kind"])
				require.Equal(t, 130.0, auto["amount"])
				require.Equal(t, "proxyHolder", data["auction"].(map[string]any)["winnerId"])
			},
		},
		{
			name:           "invalid_json",
			requestBody:    `{invalid json}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "missing_auction_id",
			requestBody:    helpers.PlaceBidRequest{BidAmount: 50},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "negative_amount",
			requestBody:    helpers.PlaceBidRequest{AuctionID: "a1", BidAmount: -10},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "auction_not_found",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", BidAmount: 110},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a1", "user1", amountOf("110")).
					Return(model.BidResult{}, biddingerrors.Reject(biddingerrors.KindNotFound, biddingerrors.ErrAuctionNotFound, "auction a1"))
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "auction not found",
		},
		{
			name:        "bid_too_low",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", BidAmount: 105},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a1", "user1", amountOf("105")).
					Return(model.BidResult{}, biddingerrors.Reject(biddingerrors.KindRuleViolation, biddingerrors.ErrBidTooLow, "bid must be at least 110.00"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "bid amount too low",
		},
		{
			name:        "auction_not_live",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", BidAmount: 110},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a1", "user1", amountOf("110")).
					Return(model.BidResult{}, biddingerrors.Reject(biddingerrors.KindInvalidState, biddingerrors.ErrAuctionNotLive, "auction status is ENDED"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "auction is not live",
		},
		{
			name:        "conflict_exhausted",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", BidAmount: 110},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a1", "user1", amountOf("110")).
					Return(model.BidResult{}, biddingerrors.Reject(biddingerrors.KindConflict, biddingerrors.ErrConflict, "gave up after 3 attempts"))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "auction is busy, please retry",
		},
		{
			name:        "service_generic_error",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", BidAmount: 110},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a1", "user1", amountOf("110")).
					Return(model.BidResult{}, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var reqBody []byte
			var err error
			switch v := tc.requestBody.(type) {
			case string:
				reqBody = []byte(v)
			default:
				reqBody, err = json.Marshal(v)
				require.NoError(t, err)
			}

			tc.mockSetup()

			req := httptest.NewRequest(http.MethodPost, "/api/bids", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(helpers.UserIDHeader, "user1")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decodeEnvelope(t, w)
			require.Contains(t, resp["message"], tc.expectedMsg)

			if tc.validateData != nil && w.Code == http.StatusCreated {
				tc.validateData(t, resp["data"].(map[string]any))
			}
		})
	}
}

// Test PlaceProxyBidHandler
func TestPlaceProxyBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)
	router := testRouter(func(r *gin.Engine) { r.POST("/api/bids/proxy", handler.PlaceProxyBidHandler) })

	now := time.Now().UTC()
	commitment := model.ProxyCommitment{
		CommitmentID: uuid.NewString(),
		AuctionID:    "a1",
		BidderID:     "user1",
		MaxAmount:    decimal.NewFromInt(200),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		validateData   func(t *testing.T, data map[string]any)
	}{
		{
			name:        "success_with_immediate_bid",
			requestBody: helpers.PlaceProxyBidRequest{AuctionID: "a1", MaxAmount: 200},
			mockSetup: func() {
				auto := newBid("user1", "110", model.KindProxyAuto)
				mockService.EXPECT().
					PlaceProxyBid(gomock.Any(), "a1", "user1", amountOf("200")).
					Return(model.ProxyResult{Commitment: commitment, AutoBid: &auto, Auction: liveAuction("110", "user1")}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "proxy bid placed successfully",
			validateData: func(t *testing.T, data map[string]any) {
				c := data["commitment"].(map[string]any)
				require.Equal(t, 200.0, c["maxAmount"])
				require.Equal(t, 110.0, data["autoBid"].(map[string]any)["amount"])
				require.Equal(t, 110.0, data["auction"].(map[string]any)["currentPrice"])
			},
		},
		{
			name:           "zero_max_amount",
			requestBody:    helpers.PlaceProxyBidRequest{AuctionID: "a1", MaxAmount: 0},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "max_below_price",
			requestBody: helpers.PlaceProxyBidRequest{AuctionID: "a1", MaxAmount: 90},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceProxyBid(gomock.Any(), "a1", "user1", amountOf("90")).
					Return(model.ProxyResult{}, biddingerrors.Reject(biddingerrors.KindRuleViolation, biddingerrors.ErrMaxAmountTooLow, "current price is 100.00"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "max amount must exceed current price",
		},
		{
			name:        "seller_proxy",
			requestBody: helpers.PlaceProxyBidRequest{AuctionID: "a1", MaxAmount: 500},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceProxyBid(gomock.Any(), "a1", "user1", amountOf("500")).
					Return(model.ProxyResult{}, biddingerrors.Reject(biddingerrors.KindRuleViolation, biddingerrors.ErrSelfBid, "user user1 is the seller"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "cannot bid on own auction",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reqBody, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			tc.mockSetup()

			req := httptest.NewRequest(http.MethodPost, "/api/bids/proxy", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(helpers.UserIDHeader, "user1")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decodeEnvelope(t, w)
			require.Contains(t, resp["message"], tc.expectedMsg)
			if tc.validateData != nil && w.Code == http.StatusCreated {
				tc.validateData(t, resp["data"].(map[string]any))
			}
		})
	}
}

// Test GetBidsByAuctionHandler
func TestGetBidsByAuctionHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)
	router := testRouter(func(r *gin.Engine) { r.GET("/api/bids/auction/:auctionId", handler.GetBidsByAuctionHandler) })

	tests := []struct {
		name           string
		auctionID      string
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		expectedLen    int
	}{
		{
			name:      "success_highest_first",
			auctionID: "a1",
			mockSetup: func() {
				mockService.EXPECT().GetBidsForAuction(gomock.Any(), "a1").Return([]model.Bid{
					newBid("A", "130", model.KindProxyAuto),
					newBid("C", "120", model.KindManual),
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			expectedLen:    2,
		},
		{
			name:      "no_bids",
			auctionID: "a2",
			mockSetup: func() {
				mockService.EXPECT().GetBidsForAuction(gomock.Any(), "a2").Return([]model.Bid{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
		},
		{
			name:      "nil_slice",
			auctionID: "a3",
			mockSetup: func() {
				mockService.EXPECT().GetBidsForAuction(gomock.Any(), "a3").Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
		},
		{
			name:      "unknown_auction",
			auctionID: "missing",
			mockSetup: func() {
				mockService.EXPECT().GetBidsForAuction(gomock.Any(), "missing").
					Return(nil, fmt.Errorf("service: %w", biddingerrors.ErrAuctionNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "auction not found",
		},
		{
			name:      "service_generic_error",
			auctionID: "a4",
			mockSetup: func() {
				mockService.EXPECT().GetBidsForAuction(gomock.Any(), "a4").Return(nil, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			req := httptest.NewRequest(http.MethodGet, "/api/bids/auction/"+tc.auctionID, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decodeEnvelope(t, w)
			require.Contains(t, resp["message"], tc.expectedMsg)

			if w.Code == http.StatusOK {
				data := resp["data"].([]any)
				require.Len(t, data, tc.expectedLen)
				if tc.expectedLen > 1 {
					first := data[0].(map[string]any)["amount"].(float64)
					second := data[1].(map[string]any)["amount"].(float64)
					require.Greater(t, first, second)
				}
			}
		})
	}
}

// Test GetBidsByUserHandler
func TestGetBidsByUserHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)
	router := testRouter(func(r *gin.Engine) { r.GET("/api/bids/user/:userId", handler.GetBidsByUserHandler) })

	bids := make([]model.Bid, 1000)
	for i := range bids {
		bids[i] = newBid("user1", fmt.Sprintf("%d", i+1), model.KindManual)
	}
	mockService.EXPECT().GetBidsByBidder(gomock.Any(), "user1").Return(bids, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/bids/user/user1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	require.Len(t, resp["data"].([]any), 1000)
}

// Test GetProxyBidHandler
func TestGetProxyBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)
	router := testRouter(func(r *gin.Engine) {
		r.GET("/api/bids/proxy/auction/:auctionId/user/:userId", handler.GetProxyBidHandler)
	})

	now := time.Now().UTC()
	mockService.EXPECT().GetProxyBid(gomock.Any(), "a1", "user1").Return(model.ProxyCommitment{
		CommitmentID: "c1", AuctionID: "a1", BidderID: "user1", MaxAmount: decimal.NewFromInt(250), CreatedAt: now, UpdatedAt: now,
	}, nil)
	mockService.EXPECT().GetProxyBid(gomock.Any(), "a1", "user2").
		Return(model.ProxyCommitment{}, fmt.Errorf("service: %w", biddingerrors.ErrProxyNotFound))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bids/proxy/auction/a1/user/user1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	require.Equal(t, 250.0, data["maxAmount"])
	require.Equal(t, "c1", data["commitmentId"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bids/proxy/auction/a1/user/user2", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "proxy bid not found", decodeEnvelope(t, w)["message"])
}

// Test ExportBidsHandler
func TestExportBidsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)
	router := testRouter(func(r *gin.Engine) { r.GET("/api/bids/auction/:auctionId/export", handler.ExportBidsHandler) })

	mockService.EXPECT().GetAuction(gomock.Any(), "a1").Return(liveAuction("130", "A"), nil)
	mockService.EXPECT().GetBidsForAuction(gomock.Any(), "a1").Return([]model.Bid{
		newBid("A", "130", model.KindProxyAuto),
		newBid("C", "120", model.KindManual),
	}, nil)
	mockService.EXPECT().GetAuction(gomock.Any(), "missing").
		Return(model.Auction{}, fmt.Errorf("service: %w", biddingerrors.ErrAuctionNotFound))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bids/auction/a1/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "bids-a1.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.LedgerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bids/auction/missing/export", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
