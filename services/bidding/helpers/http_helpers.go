package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"bidding-engine/internal/biddingerrors"
	"bidding-engine/utils"

	"github.com/gin-gonic/gin"
)

// BidderIDKey is the gin context key holding the authenticated caller
const BidderIDKey = "bidderID"

// UserIDHeader carries the caller identity set by the upstream gateway
const UserIDHeader = "X-User-ID"

// BidderID returns the caller set by the identity middleware
func BidderID(c *gin.Context) string {
	return c.GetString(BidderIDKey)
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrProxyNotFound):
		return http.StatusNotFound, "proxy bid not found"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, biddingerrors.ErrAuctionExists):
		return http.StatusConflict, "auction already exists"
	}

	var rej *biddingerrors.Rejection
	if errors.As(err, &rej) {
		switch rej.Kind {
		case biddingerrors.KindNotFound:
			return http.StatusNotFound, rej.Err.Error()
		case biddingerrors.KindInvalidState, biddingerrors.KindRuleViolation:
			return http.StatusBadRequest, rej.Err.Error()
		case biddingerrors.KindConflict:
			return http.StatusConflict, "auction is busy, please retry"
		}
	}

	if errors.Is(err, biddingerrors.ErrAuctionNotFound) {
		return http.StatusNotFound, "auction not found"
	}
	return http.StatusInternalServerError, "internal server error"
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
