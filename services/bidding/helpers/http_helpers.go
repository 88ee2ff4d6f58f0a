package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"bitnow-bidding/internal/biddingerrors"
	"bitnow-bidding/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload", biddingerrors.Kind(biddingerrors.ErrInvalidBid))
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code, message and rejection kind
func MapErrorToHTTP(err error) (int, string, string) {
	kind := biddingerrors.Kind(err)
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found", kind
	case errors.Is(err, biddingerrors.ErrAutoBidNotFound):
		return http.StatusNotFound, "no active auto-bid", "AutoBidNotFound"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction", "NoBids"
	case errors.Is(err, biddingerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not active", kind
	case errors.Is(err, biddingerrors.ErrAuctionEnded):
		return http.StatusConflict, "auction has ended", kind
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low", kind
	case errors.Is(err, biddingerrors.ErrCeilingBelowCurrentPrice):
		return http.StatusConflict, "ceiling must exceed the current price", kind
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details", kind
	default:
		return http.StatusInternalServerError, "internal server error", ""
	}
}

// RespondError writes err as a JSON error and returns its status
func RespondError(c *gin.Context, err error) int {
	status, message, kind := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message, kind)
	return status
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
