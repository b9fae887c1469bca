package handlers

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nfnt/resize"

	"github.com/foodvision/food-vision/internal/classifier"
	"github.com/foodvision/food-vision/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageTemplate is the template name rendered for the upload page.
const PageTemplate = "index.html"

// PreviewSize bounds the width and height of the uploaded photo echoed back
// on the page.
const PreviewSize = 480

// Theme is the colour scheme of the upload page.
type Theme struct {
	Name       string
	Background string
	Card       string
	Accent     string
	Text       string
	Muted      string
}

// Themes lists the available page themes by name.
var Themes = map[string]Theme{
	"light": {
		Name:       "light",
		Background: "#f6f7f9",
		Card:       "#ffffff",
		Accent:     "#e4572e",
		Text:       "#1f2328",
		Muted:      "#555555",
	},
	"warm": {
		Name:       "warm",
		Background: "#fff4e6",
		Card:       "#fffaf3",
		Accent:     "#c2410c",
		Text:       "#3b2414",
		Muted:      "#7c5a3c",
	},
}

// ThemeByName returns the named theme, falling back to "light".
func ThemeByName(name string) Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Themes["light"]
}

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"percent": func(v float64) string {
			return fmt.Sprintf("%.2f%%", v*100)
		},
		"css": func(s string) template.CSS {
			return template.CSS(s)
		},
	}).ParseFS(templateFS, "templates/*.html"))
}

// PageData is rendered into the upload page.
type PageData struct {
	Title    string
	Theme    Theme
	Model    model.Status
	Result   *classifier.Result
	ImageURI template.URL
	Success  string
	Warning  string
	Error    string
	Info     string
}

func (h *Handler) page() PageData {
	return PageData{
		Title: h.opts.Title,
		Theme: ThemeByName(h.opts.Theme),
		Model: h.models.Status(),
	}
}

// Index handles GET /
func (h *Handler) Index(c *gin.Context) {
	data := h.page()
	data.Info = "Upload an image to get predictions."
	c.HTML(http.StatusOK, PageTemplate, data)
}

// Submit handles POST / with a multipart "image" field and renders the prediction
func (h *Handler) Submit(c *gin.Context) {
	data := h.page()

	img, err := h.readImage(c)
	if err != nil {
		var u *errUpload
		if errors.As(err, &u) {
			data.Error = u.msg
		} else {
			data.Error = MapError(err).Message
		}
		c.HTML(http.StatusBadRequest, PageTemplate, data)
		return
	}

	if uri, err := previewURI(img); err == nil {
		data.ImageURI = uri
	}

	if !data.Model.Loaded {
		data.Warning = "Model not loaded. Upload a checkpoint or reload the repository model."
		c.HTML(http.StatusServiceUnavailable, PageTemplate, data)
		return
	}

	result, err := h.classifier.Classify(c.Request.Context(), img, 0)
	if err != nil {
		h.logFailure(c, "Prediction failed", err)
		errResp := MapError(err)
		data.Error = errResp.Message
		c.HTML(errResp.StatusCode, PageTemplate, data)
		return
	}

	data.Result = result
	c.HTML(http.StatusOK, PageTemplate, data)
}

// SubmitModel handles POST /ui/model with a multipart "checkpoint" field,
// or reloads the default checkpoint when "use_default" is set.
func (h *Handler) SubmitModel(c *gin.Context) {
	var err error
	source := "uploaded"
	if c.Query("use_default") != "" {
		source = "from repository"
		err = h.models.LoadPath(c.Request.Context(), h.opts.DefaultModelPath)
	} else {
		_, err = h.loadUploadedCheckpoint(c)
	}

	data := h.page()
	if err != nil {
		status := http.StatusBadRequest
		var u *errUpload
		if errors.As(err, &u) {
			data.Error = u.msg
		} else {
			h.logFailure(c, "Model load failed", err)
			data.Error = "Error loading model: " + err.Error()
			status = MapError(err).StatusCode
		}
		c.HTML(status, PageTemplate, data)
		return
	}

	data.Success = "Model loaded successfully (" + source + ")."
	c.HTML(http.StatusOK, PageTemplate, data)
}

// previewURI encodes a thumbnail of img, at most PreviewSize on each side,
// as a PNG data URI.
func previewURI(img image.Image) (template.URL, error) {
	thumb := resize.Thumbnail(PreviewSize, PreviewSize, img, resize.Bilinear)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}
