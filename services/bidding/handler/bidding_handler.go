package handler

//go:generate mockgen -source=bidding_handler.go -destination=mock_bidding_service.go -package=handler

import (
	"context"
	"fmt"
	"net/http"

	"bidding-engine/internal/export"
	model "bidding-engine/internal/models"
	"bidding-engine/services/bidding/helpers"
	"bidding-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.BidResult, error)
	PlaceProxyBid(ctx context.Context, auctionID, bidderID string, maxAmount decimal.Decimal) (model.ProxyResult, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error)
	GetProxyBid(ctx context.Context, auctionID, bidderID string) (model.ProxyCommitment, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// respondError maps err, writes the error envelope and logs it
func respondError(c *gin.Context, handlerName, logMessage string, err error, fields map[string]any) {
	status, message := helpers.MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	fields["handler"] = handlerName
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": "+logMessage, fields)
		return
	}
	utils.Warn(handlerName+": "+logMessage, fields)
}

// PlaceBidHandler handles POST /api/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}
	bidderID := helpers.BidderID(c)

	result, err := h.service.PlaceBid(c.Request.Context(), req.AuctionID, bidderID, decimal.NewFromFloat(req.BidAmount))
	if err != nil {
		respondError(c, "PlaceBidHandler", "bid rejected", err, map[string]any{
			"auction_id": req.AuctionID,
			"bidder_id":  bidderID,
			"amount":     req.BidAmount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToPlaceBidResponse(result), "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":        result.Bid.BidID,
		"auction_id":    req.AuctionID,
		"bidder_id":     bidderID,
		"amount":        result.Bid.Amount.String(),
		"auto_bid":      result.AutoBid != nil,
		"current_price": result.Auction.Price().String(),
	})
}

// PlaceProxyBidHandler handles POST /api/bids/proxy
func (h *BiddingHandler) PlaceProxyBidHandler(c *gin.Context) {
	var req helpers.PlaceProxyBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceProxyBidHandler", err)
		return
	}
	bidderID := helpers.BidderID(c)

	result, err := h.service.PlaceProxyBid(c.Request.Context(), req.AuctionID, bidderID, decimal.NewFromFloat(req.MaxAmount))
	if err != nil {
		respondError(c, "PlaceProxyBidHandler", "proxy bid rejected", err, map[string]any{
			"auction_id": req.AuctionID,
			"bidder_id":  bidderID,
			"max_amount": req.MaxAmount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToPlaceProxyBidResponse(result), "proxy bid placed successfully")
	helpers.LogSuccess("PlaceProxyBidHandler", "proxy bid placed successfully", map[string]any{
		"commitment_id": result.Commitment.CommitmentID,
		"auction_id":    req.AuctionID,
		"bidder_id":     bidderID,
		"auto_bid":      result.AutoBid != nil,
	})
}

// GetBidsByAuctionHandler handles GET /api/bids/auction/:auctionId
func (h *BiddingHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auctionId")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "GetBidsByAuctionHandler", "error retrieving bids", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// ExportBidsHandler handles GET /api/bids/auction/:auctionId/export
func (h *BiddingHandler) ExportBidsHandler(c *gin.Context) {
	auctionID := c.Param("auctionId")
	ctx := c.Request.Context()

	auction, err := h.service.GetAuction(ctx, auctionID)
	if err != nil {
		respondError(c, "ExportBidsHandler", "error loading auction", err, map[string]any{"auction_id": auctionID})
		return
	}
	bids, err := h.service.GetBidsForAuction(ctx, auctionID)
	if err != nil {
		respondError(c, "ExportBidsHandler", "error retrieving bids", err, map[string]any{"auction_id": auctionID})
		return
	}

	f, err := export.LedgerWorkbook(auction, bids)
	if err != nil {
		respondError(c, "ExportBidsHandler", "error building workbook", err, map[string]any{"auction_id": auctionID})
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		respondError(c, "ExportBidsHandler", "error writing workbook", err, map[string]any{"auction_id": auctionID})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(auctionID)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	helpers.LogSuccess("ExportBidsHandler", "ledger exported", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
		"bytes":      buf.Len(),
	})
}

// GetBidsByUserHandler handles GET /api/bids/user/:userId
func (h *BiddingHandler) GetBidsByUserHandler(c *gin.Context) {
	userID := c.Param("userId")
	bids, err := h.service.GetBidsByBidder(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "GetBidsByUserHandler", "error retrieving bids", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByUserHandler", "bids retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(bids),
	})
}

// GetProxyBidHandler handles GET /api/bids/proxy/auction/:auctionId/user/:userId
func (h *BiddingHandler) GetProxyBidHandler(c *gin.Context) {
	auctionID := c.Param("auctionId")
	userID := c.Param("userId")

	p, err := h.service.GetProxyBid(c.Request.Context(), auctionID, userID)
	if err != nil {
		respondError(c, "GetProxyBidHandler", "error retrieving proxy bid", err, map[string]any{
			"auction_id": auctionID,
			"user_id":    userID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToProxyBidResponse(p), "proxy bid retrieved successfully")
	helpers.LogSuccess("GetProxyBidHandler", "proxy bid retrieved successfully", map[string]any{
		"auction_id":    auctionID,
		"user_id":       userID,
		"commitment_id": p.CommitmentID,
	})
}
