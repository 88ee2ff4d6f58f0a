package server

import (
	"bitnow-bidding/internal/broadcast"
	handler "bitnow-bidding/services/bidding/handler"
	"bitnow-bidding/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService handler.BiddingServiceInterface, hub *broadcast.Hub) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(biddingService)
	liveHandler := NewLiveHandler(hub)

	router.GET("/health", func(c *gin.Context) {
		utils.JSONResponse(c, http.StatusOK, gin.H{"service": "bidding"}, "healthy")
	})

	auctions := router.Group("/auctions/:auction_id")
	{
		auctions.GET("", biddingHandler.GetAuctionHandler)
		auctions.POST("/bids", biddingHandler.PlaceBidHandler)
		auctions.GET("/bids", biddingHandler.GetRecentBidsHandler)
		auctions.GET("/highest", biddingHandler.GetHighestBidHandler)

		auctions.PUT("/autobids/:user_id", biddingHandler.PutAutoBidHandler)
		auctions.GET("/autobids/:user_id", biddingHandler.GetAutoBidHandler)
		auctions.DELETE("/autobids/:user_id", biddingHandler.DeleteAutoBidHandler)

		auctions.GET("/live", liveHandler.HandleLive)
		auctions.GET("/live/stats", liveHandler.StatsHandler)
	}

	return router
}
