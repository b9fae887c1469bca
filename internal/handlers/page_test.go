package handlers

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/foodvision/food-vision/internal/model"
)

func TestThemeByName(t *testing.T) {
	assert.Equal(t, "warm", ThemeByName("warm").Name)
	assert.Equal(t, "light", ThemeByName("light").Name)
	assert.Equal(t, "light", ThemeByName("neon").Name)
}

func TestIndex(t *testing.T) {
	t.Run("renders upload form with theme", func(t *testing.T) {
		opts := testOptions()
		opts.Theme = "warm"
		h, _, models := newTestHandler(opts)
		models.On("Status").Return(emptyStatus)
		router := setupTestRouter(h)

		req, _ := http.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "<title>Food Vision</title>")
		assert.Contains(t, body, Themes["warm"].Background)
		assert.Contains(t, body, `name="image"`)
		assert.Contains(t, body, "No model loaded.")
		assert.Contains(t, body, "Upload an image to get predictions.")
	})
}

func TestSubmit(t *testing.T) {
	t.Run("renders prediction box and top k", func(t *testing.T) {
		h, clf, models := newTestHandler(testOptions())
		models.On("Status").Return(loadedStatus)
		clf.On("Classify", mock.Anything, mock.Anything, 0).Return(sampleResult(), nil)
		router := setupTestRouter(h)

		body, contentType := multipartBody(t, "image", "pizza.png", pngBytes(t), nil)
		req, _ := http.NewRequest("POST", "/", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		html := w.Body.String()
		assert.Contains(t, html, `<div class="food-label">Pizza</div>`)
		assert.Contains(t, html, "Confidence: 91.00%")
		assert.Contains(t, html, "Show Top-2 Predictions")
		assert.Contains(t, html, "<strong>Hot Dog</strong> &mdash; 5.00%")
		assert.Contains(t, html, "data:image/png;base64,")
	})

	t.Run("warns when model not loaded", func(t *testing.T) {
		h, clf, models := newTestHandler(testOptions())
		models.On("Status").Return(emptyStatus)
		router := setupTestRouter(h)

		body, contentType := multipartBody(t, "image", "pizza.png", pngBytes(t), nil)
		req, _ := http.NewRequest("POST", "/", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "Model not loaded.")
		clf.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("shows decode error", func(t *testing.T) {
		h, _, models := newTestHandler(testOptions())
		models.On("Status").Return(loadedStatus)
		router := setupTestRouter(h)

		body, contentType := multipartBody(t, "image", "pizza.png", []byte("garbage"), nil)
		req, _ := http.NewRequest("POST", "/", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "supported: JPEG, PNG")
	})
}

func TestSubmitModel(t *testing.T) {
	t.Run("uploaded checkpoint", func(t *testing.T) {
		h, _, models := newTestHandler(testOptions())
		models.On("LoadBytes", "custom.onnx", []byte("graph")).Return(nil)
		models.On("Status").Return(model.Status{Loaded: true, Source: model.SourceUpload, Name: "custom.onnx"})
		router := setupTestRouter(h)

		body, contentType := multipartBody(t, "checkpoint", "custom.onnx", []byte("graph"), nil)
		req, _ := http.NewRequest("POST", "/ui/model", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Model loaded successfully (uploaded).")
		assert.Contains(t, w.Body.String(), "custom.onnx")
	})

	t.Run("repository model", func(t *testing.T) {
		h, _, models := newTestHandler(testOptions())
		models.On("LoadPath", mock.Anything, "./models/food101.onnx").Return(nil)
		models.On("Status").Return(loadedStatus)
		router := setupTestRouter(h)

		req, _ := http.NewRequest("POST", "/ui/model?use_default=1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Model loaded successfully (from repository).")
	})

	t.Run("load error is shown", func(t *testing.T) {
		h, _, models := newTestHandler(testOptions())
		models.On("LoadPath", mock.Anything, mock.Anything).
			Return(&model.LoadError{Source: "./models/food101.onnx", Err: assert.AnError})
		models.On("Status").Return(emptyStatus)
		router := setupTestRouter(h)

		req, _ := http.NewRequest("POST", "/ui/model?use_default=1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Error loading model")
	})

	t.Run("missing checkpoint file", func(t *testing.T) {
		h, _, models := newTestHandler(testOptions())
		models.On("Status").Return(emptyStatus)
		router := setupTestRouter(h)

		body, contentType := multipartBody(t, "", "", nil, map[string]string{"note": "x"})
		req, _ := http.NewRequest("POST", "/ui/model", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "no checkpoint file provided")
	})
}

func decodePreview(t *testing.T, uri string) image.Image {
	t.Helper()
	payload, ok := strings.CutPrefix(uri, "data:image/png;base64,")
	require.True(t, ok, "unexpected data URI prefix")
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestPreviewURI(t *testing.T) {
	tests := []struct {
		name           string
		width, height  int
		expectedWidth  int
		expectedHeight int
	}{
		{name: "landscape photo is shrunk", width: 4000, height: 2000, expectedWidth: PreviewSize, expectedHeight: PreviewSize / 2},
		{name: "portrait photo is shrunk", width: 1000, height: 2000, expectedWidth: PreviewSize / 2, expectedHeight: PreviewSize},
		{name: "small photo keeps its size", width: 120, height: 80, expectedWidth: 120, expectedHeight: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := previewURI(image.NewRGBA(image.Rect(0, 0, tt.width, tt.height)))
			require.NoError(t, err)

			bounds := decodePreview(t, string(uri)).Bounds()
			assert.Equal(t, tt.expectedWidth, bounds.Dx())
			assert.Equal(t, tt.expectedHeight, bounds.Dy())
		})
	}
}

func TestSubmit_PreviewIsBounded(t *testing.T) {
	h, clf, models := newTestHandler(testOptions())
	models.On("Status").Return(loadedStatus)
	clf.On("Classify", mock.Anything, mock.Anything, 0).Return(sampleResult(), nil)
	router := setupTestRouter(h)

	var upload bytes.Buffer
	require.NoError(t, png.Encode(&upload, image.NewRGBA(image.Rect(0, 0, 2400, 1800))))
	body, contentType := multipartBody(t, "image", "large.png", upload.Bytes(), nil)
	req, _ := http.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	match := regexp.MustCompile(`data:image/png;base64,[A-Za-z0-9+/=]+`).FindString(w.Body.String())
	require.NotEmpty(t, match)

	bounds := decodePreview(t, match).Bounds()
	assert.LessOrEqual(t, bounds.Dx(), PreviewSize)
	assert.LessOrEqual(t, bounds.Dy(), PreviewSize)
}
