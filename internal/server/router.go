package server

import (
	auctionhandler "bidding-engine/services/auction/handler"
	handler "bidding-engine/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// Dependencies groups what the router needs to build its handlers
type Dependencies struct {
	Bidding  handler.BiddingServiceInterface
	Auctions auctionhandler.AuctionServiceInterface
	Live     gin.HandlerFunc    // websocket upgrade for /api/bids/auction/:auctionId/live
	Limiter  *BidderRateLimiter // nil disables rate limiting on bid submission
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(deps.Bidding)
	auctionHandler := auctionhandler.NewAuctionHandler(deps.Auctions)

	submit := func(h gin.HandlerFunc) []gin.HandlerFunc {
		chain := []gin.HandlerFunc{BidderIdentity}
		if deps.Limiter != nil {
			chain = append(chain, deps.Limiter.Middleware)
		}
		return append(chain, h)
	}

	bids := router.Group("/api/bids")
	{
		bids.POST("", submit(biddingHandler.PlaceBidHandler)...)
		bids.POST("/proxy", submit(biddingHandler.PlaceProxyBidHandler)...)
		bids.GET("/auction/:auctionId", biddingHandler.GetBidsByAuctionHandler)
		bids.GET("/auction/:auctionId/export", biddingHandler.ExportBidsHandler)
		bids.GET("/user/:userId", biddingHandler.GetBidsByUserHandler)
		bids.GET("/proxy/auction/:auctionId/user/:userId", biddingHandler.GetProxyBidHandler)
		if deps.Live != nil {
			bids.GET("/auction/:auctionId/live", deps.Live)
		}
	}

	auctions := router.Group("/api/auctions")
	{
		auctions.GET("/live", auctionHandler.ListLiveAuctionsHandler)
		auctions.GET("/:auctionId", auctionHandler.GetAuctionHandler)
	}

	admin := router.Group("/api/admin/auctions", BidderIdentity)
	{
		admin.POST("", auctionHandler.CreateAuctionHandler)
		admin.PUT("/:auctionId/start", auctionHandler.StartAuctionHandler)
		admin.PUT("/:auctionId/end", auctionHandler.EndAuctionHandler)
	}

	return router
}
