package api

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incomedash/internal/config"
	"incomedash/internal/container"
	"incomedash/internal/errors"
	"incomedash/internal/model"
)

func testConfig(t *testing.T, withModel bool) *config.Config {
	t.Helper()
	dir := t.TempDir()

	data := "id_cliente,sexo,idade,qtd_filhos,renda\n1,F,26,0,8060.34\n2,M,28,1,1852.15\n3,F,35,2,2253.89\n4,M,40,0,4000\n"
	dataPath := filepath.Join(dir, "previsao_de_renda.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(data), 0o644))

	cfg := config.Default()
	cfg.Server.GinMode = "test"
	cfg.Data.Path = dataPath
	cfg.Model.Path = filepath.Join(dir, "modelo_pipeline.json")

	if withModel {
		artifact := model.Artifact{
			FormatVersion:  model.FormatVersion,
			Name:           "renda-linear",
			FeatureNamesIn: []string{"idade", "sexo"},
			Preprocessor: model.Preprocessor{Steps: []model.Step{
				{Column: "idade", Type: model.StepNumeric},
				{Column: "sexo", Type: model.StepCategorical, Categories: []string{"F", "M"}},
			}},
			Regressor: model.RegressorSpec{Kind: model.RegressorLinear, Coefficients: []float64{100, 0, 500}},
		}
		raw, err := json.Marshal(artifact)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(cfg.Model.Path, raw, 0o644))
	}
	return cfg
}

func newTestRouter(t *testing.T, withModel bool) http.Handler {
	t.Helper()
	c, err := container.New(testConfig(t, withModel))
	require.NoError(t, err)
	return NewRouter(c)
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPredict(t *testing.T) {
	router := newTestRouter(t, true)

	w := do(t, router, http.MethodPost, "/api/predict", []byte(`{"sexo":"M","idade":30,"renda":1}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, 3500.0, body["prediction"])
	assert.NotEmpty(t, body["request_id"])
	assert.Equal(t, []any{"renda"}, body["dropped"])
}

func TestPredictErrors(t *testing.T) {
	router := newTestRouter(t, true)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"not json", `{`, http.StatusBadRequest, errors.CodeInvalidInput},
		{"array", `[1,2]`, http.StatusBadRequest, errors.CodeInvalidInput},
		{"null", `null`, http.StatusBadRequest, errors.CodeInvalidInput},
		{"missing feature", `{"idade":30}`, http.StatusUnprocessableEntity, errors.CodePrediction},
		{"unknown category", `{"idade":30,"sexo":"X"}`, http.StatusUnprocessableEntity, errors.CodePrediction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/predict", []byte(tt.body))
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPredictRequestIDHeader(t *testing.T) {
	router := newTestRouter(t, true)
	const id = "0190a5b2-7c1e-7d4a-9f3b-2c6e8d1a4b5f"

	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewReader([]byte(`{"sexo":"M","idade":30}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, id)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, id, decode(t, w)["request_id"])
	assert.Equal(t, id, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewReader([]byte(`{"sexo":"M","idade":30}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.CodeInvalidInput, decode(t, w)["code"])

	w = do(t, router, http.MethodPost, "/api/predict", []byte(`{"sexo":"M","idade":30}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, decode(t, w)["request_id"], w.Header().Get(RequestIDHeader))
}

func TestUnexpectedFailuresAreInternalErrors(t *testing.T) {
	c, err := container.New(testConfig(t, true))
	require.NoError(t, err)
	router := NewRouter(c)
	h := NewHandler(c)
	router.GET("/api/plain-error", func(c *gin.Context) { h.fail(c, stderrors.New("disk on fire")) })
	router.GET("/api/panic", func(c *gin.Context) { panic("nil map") })

	w := do(t, router, http.MethodGet, "/api/plain-error", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, errors.CodeInternalError, body["code"])
	assert.Contains(t, body["error"], "disk on fire")

	w = do(t, router, http.MethodGet, "/api/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body = decode(t, w)
	assert.Equal(t, errors.CodeInternalError, body["code"])
	assert.Contains(t, body["error"], "nil map")
}

func TestPredictWithoutModel(t *testing.T) {
	router := newTestRouter(t, false)

	w := do(t, router, http.MethodPost, "/api/predict", []byte(`{"idade":30,"sexo":"M"}`))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, errors.CodeModelLoad, decode(t, w)["code"])

	w = do(t, router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, true, body["dataset"].(map[string]any)["loaded"])
	assert.Equal(t, false, body["model"].(map[string]any)["loaded"])
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(t, true), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 4.0, body["rows"])
	assert.Equal(t, "renda-linear", body["model_name"])
	assert.Len(t, body["model_sha256"], 64)
}

func TestSchema(t *testing.T) {
	w := do(t, newTestRouter(t, true), http.MethodGet, "/api/schema", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, []any{"idade", "sexo"}, body["feature_names"])

	fields := body["fields"].([]any)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.(map[string]any)["name"].(string))
	}
	assert.NotContains(t, names, "id_cliente")
	assert.NotContains(t, names, "renda")
	assert.Contains(t, names, "sexo")
}

func TestCharts(t *testing.T) {
	router := newTestRouter(t, true)

	w := do(t, router, http.MethodGet, "/api/charts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["charts"], "renda_idade")

	w = do(t, router, http.MethodGet, "/api/charts/renda_idade", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "scatter", decode(t, w)["kind"])

	w = do(t, router, http.MethodGet, "/api/charts/pizza", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.CodeNotFound, decode(t, w)["code"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(errors.Prediction("x", nil)))
	assert.Equal(t, http.StatusBadRequest, StatusFor(errors.ValidationError("x")))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(errors.Wrap(errors.DataAccess("x", nil), "outer")))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(errors.ModelLoad("x", nil)))
	assert.Equal(t, http.StatusNotFound, StatusFor(errors.NotFound("chart")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(assert.AnError))
}
