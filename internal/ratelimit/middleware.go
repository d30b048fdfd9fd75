package ratelimit

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atelier-digital/atelier-backend/internal/apperr"
)

const maxUserAgentLen = 50

// ClientKey derives a best-effort client fingerprint from the forwarded
// IP and a User-Agent prefix. Both headers are spoofable; this is abuse
// mitigation, not a security boundary.
func ClientKey(c *gin.Context) string {
	ip := ""
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip == "" {
		ip = c.ClientIP()
	}
	if ip == "" {
		ip = "unknown"
	}

	ua := c.GetHeader("User-Agent")
	if ua == "" {
		ua = "unknown"
	}
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}

	return ip + ":" + ua
}

type deniedBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Middleware enforces the limit per client key. Store failures fail
// open: a broken limiter must not take the site down.
func Middleware(store Store, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := store.Check(c.Request.Context(), ClientKey(c), cfg)
		if err != nil {
			log.Printf("[warn] operation=rate_limit message=check failed, allowing request: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			denied := apperr.RateLimited("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, deniedBody{
				Success: false,
				Error:   apperr.PublicMessage(denied),
				Code:    apperr.Code(denied),
				Message: fmt.Sprintf("too many requests, retry in %d seconds", retryAfter),
			})
			return
		}

		c.Next()
	}
}
