package ui

import (
	"html/template"
	"net/http"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"

	"incomedash/internal/errors"
	"incomedash/internal/form"
	"incomedash/internal/inference"
	"incomedash/internal/model"
)

type pageData struct {
	Title       string
	Fields      []form.Field
	FieldsError string
	Model       *modelInfo
	ModelError  string
	Charts      []string
	ChartsError string
	Prediction  *predictionView
}

type modelInfo struct {
	Name        string
	Description template.HTML
	Fingerprint string
	Features    []string
}

type predictionView struct {
	Amount    string
	RequestID string
	Missing   []string
	Dropped   []string
	Error     string
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	a.renderTemplate(w, "index.html", a.page(r, nil))
}

// handlePredict answers the form. HTMX requests get the result fragment;
// plain form posts get the whole page with the result filled in.
func (a *App) handlePredict(w http.ResponseWriter, r *http.Request) {
	view := a.predict(r)
	if isHTMX(r) {
		a.renderTemplate(w, "prediction.html", view)
		return
	}
	a.renderTemplate(w, "index.html", a.page(r, view))
}

func (a *App) page(r *http.Request, prediction *predictionView) pageData {
	ctx := r.Context()
	data := pageData{Title: "Previsão de Renda", Prediction: prediction}

	if fields, err := a.deps.Fields.Get(ctx); err != nil {
		data.FieldsError = userMessage(err)
	} else {
		data.Fields = fields
	}

	if m, err := a.deps.Model.Get(ctx); err != nil {
		data.ModelError = userMessage(err)
	} else {
		data.Model = describe(m)
	}

	if names, err := a.deps.Charts.Names(ctx); err != nil {
		data.ChartsError = userMessage(err)
	} else {
		data.Charts = names
	}
	return data
}

func (a *App) predict(r *http.Request) *predictionView {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		return &predictionView{Error: "The form could not be read."}
	}

	fields, err := a.deps.Fields.Get(ctx)
	if err != nil {
		return &predictionView{Error: userMessage(err)}
	}
	record, err := form.ParseRecord(fields, r.PostForm)
	if err != nil {
		return &predictionView{Error: userMessage(err)}
	}

	m, err := a.deps.Model.Get(ctx)
	if err != nil {
		return &predictionView{Error: userMessage(err)}
	}
	p, err := a.deps.Inference.Predict(ctx, m, record)
	if err != nil {
		a.logger.Warn("prediction failed: %v", err)
		return &predictionView{Error: userMessage(err)}
	}
	return newPredictionView(p)
}

func newPredictionView(p inference.Prediction) *predictionView {
	return &predictionView{
		Amount:    FormatCurrency(p.Value),
		RequestID: p.RequestID.String(),
		Missing:   p.Missing,
		Dropped:   p.Dropped,
	}
}

func describe(m model.Model) *modelInfo {
	info := &modelInfo{Features: m.FeatureNames()}
	if d, ok := m.(model.Describer); ok {
		info.Name = d.Name()
		info.Fingerprint = d.Fingerprint().Short()
		if desc := d.Description(); desc != "" {
			info.Description = renderMarkdown(desc)
		}
	}
	return info
}

// renderMarkdown renders an artifact description. Raw HTML in the source is
// dropped and links are limited to safe protocols.
func renderMarkdown(src string) template.HTML {
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.Safelink,
	})
	return template.HTML(markdown.ToHTML([]byte(src), nil, renderer))
}

// userMessage turns an error into the text shown on the page
func userMessage(err error) string {
	switch {
	case errors.IsModelLoad(err):
		return "The model is unavailable: " + err.Error()
	case errors.IsDataAccess(err):
		return "The dataset is unavailable: " + err.Error()
	case errors.IsPrediction(err):
		return "The model could not produce an estimate: " + err.Error()
	case errors.HasCode(err, errors.CodeValidationError):
		return err.Error()
	default:
		return "Unexpected error: " + err.Error()
	}
}
