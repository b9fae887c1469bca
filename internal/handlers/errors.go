package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodvision/food-vision/internal/model"
	"github.com/foodvision/food-vision/internal/predict"
	"github.com/foodvision/food-vision/internal/preprocess"
)

// Error codes returned in the response envelope.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInvalidImage    = "INVALID_IMAGE"
	CodeModelNotLoaded  = "MODEL_NOT_LOADED"
	CodeLoadFailed      = "LOAD_FAILED"
	CodeInferenceFailed = "INFERENCE_FAILED"
	CodeTimeout         = "TIMEOUT"
	CodeInternal        = "INTERNAL_ERROR"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapError maps classification and model errors to HTTP error responses.
func MapError(err error) ErrorResponse {
	switch {
	case errors.Is(err, predict.ErrInvalidInput), errors.Is(err, model.ErrInputShape):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       CodeInvalidInput,
			Message:    err.Error(),
		}
	case errors.Is(err, preprocess.ErrDecode):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       CodeInvalidImage,
			Message:    preprocess.ErrDecode.Error(),
		}
	case errors.Is(err, model.ErrNotLoaded):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       CodeModelNotLoaded,
			Message:    "model not loaded, upload a checkpoint or reload the default model",
		}
	case errors.Is(err, model.ErrLoad):
		return ErrorResponse{
			StatusCode: http.StatusUnprocessableEntity,
			Code:       CodeLoadFailed,
			Message:    err.Error(),
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       CodeTimeout,
			Message:    "request cancelled",
		}
	case errors.Is(err, model.ErrInference):
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeInferenceFailed,
			Message:    "prediction failed",
		}
	default:
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeInternal,
			Message:    "internal server error",
		}
	}
}

// HandleError sends the mapped error response for err.
func HandleError(c *gin.Context, err error) {
	errResp := MapError(err)
	respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
}

// HandleInvalidRequest handles a generic invalid request error.
func HandleInvalidRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, CodeInvalidRequest, message)
}
