package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"bidding-engine/services/bidding/helpers"
	"bidding-engine/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

var (
	errMissingIdentity = errors.New("missing " + helpers.UserIDHeader + " header")
	errRateLimited     = errors.New("rate limit exceeded")
)

// RequestLoggerMiddleware tags the request with an id and logs it with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()
	requestID := utils.RequestID(c.GetHeader(requestIDHeader))
	c.Header(requestIDHeader, requestID)

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"request_id": requestID,
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"status":     c.Writer.Status(),
		"bidder_id":  c.GetString(helpers.BidderIDKey),
		"latency":    time.Since(start).String(),
	})
}

// BidderIdentity requires the caller id header and stores it on the context
func BidderIdentity(c *gin.Context) {
	bidderID := strings.TrimSpace(c.GetHeader(helpers.UserIDHeader))
	if bidderID == "" {
		utils.JSONError(c, http.StatusUnauthorized, errMissingIdentity, "unauthorized")
		c.Abort()
		return
	}
	c.Set(helpers.BidderIDKey, bidderID)
	c.Next()
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// BidderRateLimiter keeps one token bucket per bidder
type BidderRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewBidderRateLimiter(rps float64, burst int) *BidderRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &BidderRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  3 * time.Minute,
		now:      time.Now,
	}
}

func (rl *BidderRateLimiter) limiterFor(bidderID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[bidderID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[bidderID] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Sweep drops bidders idle for longer than the ttl and returns how many were removed
func (rl *BidderRateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := rl.now().Add(-rl.idleTTL)
	for id, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle bidders every interval until stop is closed
func (rl *BidderRateLimiter) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := rl.Sweep(); n > 0 {
				utils.Debug("rate limiter: swept idle bidders", map[string]any{"removed": n})
			}
		case <-stop:
			return
		}
	}
}

// Middleware rejects with 429 once the bidder has spent its burst. Must run after BidderIdentity.
func (rl *BidderRateLimiter) Middleware(c *gin.Context) {
	bidderID := helpers.BidderID(c)
	if !rl.limiterFor(bidderID).Allow() {
		c.Header("Retry-After", "1")
		utils.JSONError(c, http.StatusTooManyRequests, errRateLimited, "too many requests")
		utils.Warn("rate limit exceeded", map[string]any{"bidder_id": bidderID, "path": c.Request.URL.Path})
		c.Abort()
		return
	}
	c.Next()
}
