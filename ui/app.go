// Package ui serves the income prediction dashboard.
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"incomedash/internal"
	"incomedash/internal/container"
)

//go:embed templates/*.html static/*
var embeddedFiles embed.FS

// App represents the dashboard application
type App struct {
	router    *chi.Mux
	deps      *container.Container
	templates *template.Template
	logger    *internal.Logger
}

// NewApp creates the dashboard. api, when non-nil, is mounted at /api and
// receives the full request path.
func NewApp(deps *container.Container, api http.Handler) (*App, error) {
	if deps == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	funcMap := template.FuncMap{
		"num": func(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		deps:      deps,
		templates: templates,
		logger:    internal.DefaultLogger.With("UI"),
	}

	if err := app.setupMiddleware(); err != nil {
		return nil, err
	}
	app.setupRoutes(api)

	return app, nil
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() error {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))

	static, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to open static files: %w", err)
	}
	a.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	return nil
}

// setupRoutes configures the application routes
func (a *App) setupRoutes(api http.Handler) {
	a.router.Get("/", a.handleIndex)
	a.router.Post("/predict", a.handlePredict)

	if api != nil {
		a.router.Mount("/api", api)
	}
}

// Template helpers
func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		a.logger.Error("template %s: %v", templateName, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

// HTMX helpers
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
