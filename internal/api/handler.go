// Package api serves the JSON API under /api.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"incomedash/domain/core"
	"incomedash/internal"
	"incomedash/internal/container"
	"incomedash/internal/errors"
	"incomedash/internal/form"
	"incomedash/internal/inference"
	"incomedash/internal/model"
)

// RequestIDHeader carries a caller-chosen UUID for a prediction. The header is
// echoed on every prediction response.
const RequestIDHeader = "X-Request-ID"

// Handler serves prediction, schema and chart requests
type Handler struct {
	deps   *container.Container
	logger *internal.Logger
}

// NewHandler creates a handler over the container's shared resources
func NewHandler(deps *container.Container) *Handler {
	return &Handler{deps: deps, logger: internal.DefaultLogger.With("API")}
}

type resourceStatus struct {
	Loaded bool   `json:"loaded"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status  string         `json:"status"`
	Dataset resourceStatus `json:"dataset"`
	Rows    int            `json:"rows,omitempty"`
	Model   resourceStatus `json:"model"`
	Name    string         `json:"model_name,omitempty"`
	SHA256  string         `json:"model_sha256,omitempty"`
}

// Health reports whether the dataset and the model are usable. It always
// answers 200; a failed resource makes the status "degraded".
func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	resp := healthResponse{Status: "ok"}

	if t, err := h.deps.Dataset.Get(ctx); err != nil {
		resp.Status = "degraded"
		resp.Dataset.Error = err.Error()
	} else {
		resp.Dataset.Loaded = true
		resp.Rows = t.Len()
	}

	if m, err := h.deps.Model.Get(ctx); err != nil {
		resp.Status = "degraded"
		resp.Model.Error = err.Error()
	} else {
		resp.Model.Loaded = true
		if d, ok := m.(model.Describer); ok {
			resp.Name = d.Name()
			resp.SHA256 = d.Fingerprint().String()
		}
	}

	c.JSON(http.StatusOK, resp)
}

type schemaResponse struct {
	FeatureNames []string     `json:"feature_names"`
	Fields       []form.Field `json:"fields"`
	FieldsError  string       `json:"fields_error,omitempty"`
}

// Schema returns the model's ordered feature names and the form fields
// derived from the dataset
func (h *Handler) Schema(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := h.deps.Model.Get(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := schemaResponse{FeatureNames: m.FeatureNames()}
	if fields, err := h.deps.Fields.Get(ctx); err != nil {
		resp.FieldsError = err.Error()
	} else {
		resp.Fields = fields
	}
	c.JSON(http.StatusOK, resp)
}

// Predict runs the inference adapter on a JSON object of feature values
func (h *Handler) Predict(c *gin.Context) {
	var record map[string]any
	if err := c.ShouldBindJSON(&record); err != nil {
		h.fail(c, errors.InvalidInput("request body must be a JSON object of feature values: "+err.Error()))
		return
	}
	if record == nil {
		h.fail(c, errors.InvalidInput("request body must be a JSON object of feature values"))
		return
	}

	ctx := c.Request.Context()
	if header := c.GetHeader(RequestIDHeader); header != "" {
		id, err := core.ParseRequestID(header)
		if err != nil {
			h.fail(c, errors.InvalidInput(err.Error()))
			return
		}
		ctx = inference.WithRequestID(ctx, id)
	}

	m, err := h.deps.Model.Get(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	start := time.Now()
	p, err := h.deps.Inference.Predict(ctx, m, record)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("prediction %s: %.2f in %s", p.RequestID, p.Value, time.Since(start))
	c.Header(RequestIDHeader, p.RequestID.String())
	c.JSON(http.StatusOK, p)
}

// ListCharts returns the names of the charts the dataset supports
func (h *Handler) ListCharts(c *gin.Context) {
	names, err := h.deps.Charts.Names(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"charts": names})
}

// GetChart returns one chart spec
func (h *Handler) GetChart(c *gin.Context) {
	chart, err := h.deps.Charts.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}

// recoverPanic answers a panicking handler with the usual JSON error body
func (h *Handler) recoverPanic(c *gin.Context, recovered any) {
	h.fail(c, errors.InternalError(fmt.Sprintf("unexpected failure: %v", recovered)))
	c.Abort()
}

func (h *Handler) fail(c *gin.Context, err error) {
	if !errors.IsAppError(err) {
		err = errors.WithCode(errors.CodeInternalError, err)
	}
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		h.logger.Debug("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}

// StatusFor maps an error chain to an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.IsPrediction(err):
		return http.StatusUnprocessableEntity
	case errors.HasCode(err, errors.CodeValidationError), errors.HasCode(err, errors.CodeInvalidInput):
		return http.StatusBadRequest
	case errors.IsDataAccess(err), errors.IsModelLoad(err):
		return http.StatusServiceUnavailable
	case errors.HasCode(err, errors.CodeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
