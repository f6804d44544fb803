package handler

//go:generate mockgen -source=auction_handler.go -destination=mock_auction_service.go -package=handler

import (
	"context"
	"fmt"
	"net/http"

	"bidding-engine/internal/lifecycle"
	model "bidding-engine/internal/models"
	"bidding-engine/services/bidding/helpers"
	"bidding-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AuctionServiceInterface interface {
	Create(ctx context.Context, req lifecycle.CreateRequest) (model.Auction, error)
	Start(ctx context.Context, auctionID string) (model.Auction, error)
	End(ctx context.Context, auctionID string) (model.Auction, error)
	Get(ctx context.Context, auctionID string) (model.Auction, error)
	ListLive(ctx context.Context) ([]model.Auction, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

func fail(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := helpers.MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
	fields["error"] = err.Error()
	utils.Warn(handlerName+": request failed", fields)
}

// CreateAuctionHandler handles POST /api/admin/auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}
	sellerID := helpers.BidderID(c)

	a, err := h.service.Create(c.Request.Context(), lifecycle.CreateRequest{
		ProductID:    req.ProductID,
		SellerID:     sellerID,
		StartPrice:   decimal.NewFromFloat(req.StartPrice),
		MinIncrement: decimal.NewFromFloat(req.MinIncrement),
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	})
	if err != nil {
		fail(c, "CreateAuctionHandler", err, map[string]any{"product_id": req.ProductID, "seller_id": sellerID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToAuctionResponse(a), "auction scheduled successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction scheduled", map[string]any{"auction_id": a.AuctionID, "seller_id": sellerID})
}

// StartAuctionHandler handles PUT /api/admin/auctions/:auctionId/start
func (h *AuctionHandler) StartAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auctionId")
	a, err := h.service.Start(c.Request.Context(), auctionID)
	if err != nil {
		fail(c, "StartAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(a), "auction started successfully")
	helpers.LogSuccess("StartAuctionHandler", "auction started", map[string]any{"auction_id": auctionID})
}

// EndAuctionHandler handles PUT /api/admin/auctions/:auctionId/end
func (h *AuctionHandler) EndAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auctionId")
	a, err := h.service.End(c.Request.Context(), auctionID)
	if err != nil {
		fail(c, "EndAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(a), "auction ended successfully")
	helpers.LogSuccess("EndAuctionHandler", "auction ended", map[string]any{"auction_id": auctionID, "status": string(a.Status)})
}

// GetAuctionHandler handles GET /api/auctions/:auctionId
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auctionId")
	a, err := h.service.Get(c.Request.Context(), auctionID)
	if err != nil {
		fail(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(a), "auction retrieved successfully")
}

// ListLiveAuctionsHandler handles GET /api/auctions/live
func (h *AuctionHandler) ListLiveAuctionsHandler(c *gin.Context) {
	auctions, err := h.service.ListLive(c.Request.Context())
	if err != nil {
		fail(c, "ListLiveAuctionsHandler", err, map[string]any{})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponses(auctions), "live auctions retrieved successfully")
}
