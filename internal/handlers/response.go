package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/foodvision/food-vision/internal/middleware"
)

// Response is the JSON envelope of every API endpoint.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *MetaInfo  `json:"meta"`
}

// ErrorInfo is the machine readable code plus a message safe to show users.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo ties a response to its request. RequestID and DurationMS are
// only known when the request passed through middleware.RequestID.
type MetaInfo struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	DurationMS float64   `json:"duration_ms,omitempty"`
}

func newMeta(c *gin.Context) *MetaInfo {
	now := time.Now().UTC()
	meta := &MetaInfo{
		Timestamp: now,
		RequestID: c.GetString(middleware.RequestIDKey),
	}
	if start, ok := c.Get(middleware.RequestStartKey); ok {
		if t, ok := start.(time.Time); ok {
			meta.DurationMS = float64(now.Sub(t).Microseconds()) / 1000
		}
	}
	return meta
}

func respondSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
		Meta:    newMeta(c),
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
		Meta:    newMeta(c),
	})
}
