package handlers

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodvision/food-vision/internal/classifier"
	"github.com/foodvision/food-vision/internal/middleware"
	"github.com/foodvision/food-vision/internal/model"
	"github.com/foodvision/food-vision/internal/preprocess"
)

// Classifier produces labelled predictions.
type Classifier interface {
	Classify(ctx context.Context, img image.Image, k int) (*classifier.Result, error)
	ClassifyTensor(ctx context.Context, input []float32, k int) (*classifier.Result, error)
	ClassifyScores(scores []float32, k int) (*classifier.Result, error)
}

// ModelManager loads checkpoints and reports what is loaded.
type ModelManager interface {
	LoadPath(ctx context.Context, path string) error
	LoadBytes(name string, data []byte) error
	Status() model.Status
}

// Options configures request limits and presentation.
type Options struct {
	DefaultModelPath string
	MaxUploadBytes   int64
	MaxImageBytes    int64
	Title            string
	Theme            string
}

// CheckpointExtensions lists accepted checkpoint file extensions.
var CheckpointExtensions = map[string]bool{
	".onnx": true,
}

// Handler serves the prediction API and the upload page.
type Handler struct {
	classifier Classifier
	models     ModelManager
	opts       Options
	logger     *zap.Logger
}

func NewHandler(c Classifier, models ModelManager, opts Options, logger *zap.Logger) *Handler {
	return &Handler{
		classifier: c,
		models:     models,
		opts:       opts,
		logger:     logger,
	}
}

// PredictionRequest is a preprocessed CHW tensor.
type PredictionRequest struct {
	Image []float32 `json:"image" binding:"required"`
	K     int       `json:"k"`
}

// ScoresRequest carries raw logits from an external model.
type ScoresRequest struct {
	Scores []float32 `json:"scores" binding:"required"`
	K      int       `json:"k"`
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	modelState := "not loaded"
	if h.models.Status().Loaded {
		modelState = "loaded"
	}

	c.JSON(http.StatusOK, HealthStatus{
		Status:     "healthy",
		Components: map[string]string{"model": modelState},
	})
}

// Ready handles GET /ready
func (h *Handler) Ready(c *gin.Context) {
	if !h.models.Status().Loaded {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "model not loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Predict handles POST /predict with a preprocessed tensor
func (h *Handler) Predict(c *gin.Context) {
	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleInvalidRequest(c, "invalid JSON: "+err.Error())
		return
	}

	result, err := h.classifier.ClassifyTensor(c.Request.Context(), req.Image, req.K)
	if err != nil {
		h.logFailure(c, "Prediction failed", err)
		HandleError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, result)
}

// PredictScores handles POST /predict/scores with raw logits
func (h *Handler) PredictScores(c *gin.Context) {
	var req ScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleInvalidRequest(c, "invalid JSON: "+err.Error())
		return
	}

	result, err := h.classifier.ClassifyScores(req.Scores, req.K)
	if err != nil {
		HandleError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, result)
}

// PredictFromImage handles POST /predict/image with a multipart "image" field
func (h *Handler) PredictFromImage(c *gin.Context) {
	img, err := h.readImage(c)
	if err != nil {
		h.handleUploadError(c, err)
		return
	}

	k, err := parseK(c)
	if err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}

	result, err := h.classifier.Classify(c.Request.Context(), img, k)
	if err != nil {
		h.logFailure(c, "Prediction failed", err)
		HandleError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, result)
}

// ModelStatus handles GET /model
func (h *Handler) ModelStatus(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.models.Status())
}

// UploadModel handles POST /model with a multipart "checkpoint" field
func (h *Handler) UploadModel(c *gin.Context) {
	name, err := h.loadUploadedCheckpoint(c)
	if err != nil {
		h.handleUploadError(c, err)
		return
	}

	h.logger.Info("Checkpoint uploaded", zap.String("name", name))
	respondSuccess(c, http.StatusOK, h.models.Status())
}

// ReloadModel handles POST /model/reload, loading the configured default checkpoint
func (h *Handler) ReloadModel(c *gin.Context) {
	if err := h.models.LoadPath(c.Request.Context(), h.opts.DefaultModelPath); err != nil {
		h.logFailure(c, "Reload failed", err)
		HandleError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, h.models.Status())
}

// errUpload marks client-side upload problems that map to INVALID_REQUEST.
type errUpload struct {
	msg string
}

func (e *errUpload) Error() string { return e.msg }

func (h *Handler) handleUploadError(c *gin.Context, err error) {
	var u *errUpload
	if errors.As(err, &u) {
		HandleInvalidRequest(c, u.msg)
		return
	}
	h.logFailure(c, "Upload failed", err)
	HandleError(c, err)
}

func (h *Handler) readImage(c *gin.Context) (image.Image, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxImageBytes)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		return nil, &errUpload{msg: uploadMessage(err, "image", h.opts.MaxImageBytes)}
	}
	defer file.Close()

	h.logger.Debug("Received image",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)

	img, format, err := preprocess.Decode(file)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Decoded image",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
	)
	return img, nil
}

func (h *Handler) loadUploadedCheckpoint(c *gin.Context) (string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)

	file, header, err := c.Request.FormFile("checkpoint")
	if err != nil {
		return "", &errUpload{msg: uploadMessage(err, "checkpoint", h.opts.MaxUploadBytes)}
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !CheckpointExtensions[ext] {
		return "", &errUpload{msg: fmt.Sprintf("unsupported checkpoint type %q, expected .onnx", ext)}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", &errUpload{msg: "failed to read checkpoint"}
	}

	if err := h.models.LoadBytes(header.Filename, data); err != nil {
		return "", err
	}
	return header.Filename, nil
}

func uploadMessage(err error, field string, limit int64) string {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Sprintf("%s exceeds the %d byte limit", field, limit)
	}
	if errors.Is(err, http.ErrMissingFile) {
		return fmt.Sprintf("no %s file provided, use '%s' as the form field name", field, field)
	}
	return "failed to parse form: " + err.Error()
}

func parseK(c *gin.Context) (int, error) {
	raw := c.Query("k")
	if raw == "" {
		raw = c.PostForm("k")
	}
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return 0, fmt.Errorf("k must be a positive integer, got %q", raw)
	}
	return k, nil
}

func (h *Handler) logFailure(c *gin.Context, msg string, err error) {
	h.logger.Warn(msg,
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.Error(err),
	)
}
