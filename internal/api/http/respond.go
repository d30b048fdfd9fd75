package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-digital/atelier-backend/internal/apperr"
)

// Envelope is the uniform response shape for every API endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Fail maps an error kind to an HTTP status and a sanitized message.
func Fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= 500 {
		log.Printf("[error] request_id=%s method=%s path=%s error=%v",
			c.GetString("request_id"), c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, Envelope{Success: false, Error: apperr.PublicMessage(err), Code: apperr.Code(err)})
}

// Abort is Fail plus request abortion, for use inside middleware.
func Abort(c *gin.Context, err error) {
	Fail(c, err)
	c.Abort()
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
