package container

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"incomedash/domain/table"
	"incomedash/internal"
	"incomedash/internal/cache"
	"incomedash/internal/charts"
	"incomedash/internal/config"
	"incomedash/internal/dataset"
	"incomedash/internal/form"
	"incomedash/internal/inference"
	"incomedash/internal/model"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Load-once resources shared by every request
	Dataset *cache.Resource[*table.Table]
	Model   *cache.Resource[model.Model]
	Fields  *cache.Resource[[]form.Field]

	Inference *inference.Adapter
	Charts    *charts.Service
}

// New creates a container whose dataset and model load on first use
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level))

	loader := dataset.NewLoader(dataset.Options{Encoding: cfg.Data.Encoding})
	c := &Container{
		Config: cfg,
		Logger: logger,
		Dataset: cache.NewResource("dataset", cfg.Data.LoadTimeout, func(ctx context.Context) (*table.Table, error) {
			return loader.Load(ctx, cfg.Data.Path)
		}),
		Model: cache.NewResource("model", cfg.Data.LoadTimeout, func(ctx context.Context) (model.Model, error) {
			return model.Load(cfg.Model.Path)
		}),
		Inference: inference.NewAdapter(),
	}
	c.Fields = cache.NewResource("fields", cfg.Data.LoadTimeout, func(ctx context.Context) ([]form.Field, error) {
		t, err := c.Dataset.Get(ctx)
		if err != nil {
			return nil, err
		}
		return form.Build(t), nil
	})

	svc, err := charts.NewService(cfg.Charts.CacheSize, c.Dataset.Get)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize charts: %w", err)
	}
	c.Charts = svc

	return c, nil
}

// Warm loads the dataset and the model concurrently. Failures are logged and
// returned; each one only disables the features that depend on it.
func (c *Container) Warm(ctx context.Context) error {
	start := time.Now()
	var g errgroup.Group

	g.Go(func() error {
		if _, err := c.Dataset.Get(ctx); err != nil {
			c.Logger.Error("dataset unavailable, charts and form disabled: %v", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		if _, err := c.Model.Get(ctx); err != nil {
			c.Logger.Error("model unavailable, predictions disabled: %v", err)
			return err
		}
		return nil
	})

	err := g.Wait()
	if err == nil {
		c.Logger.Info("warm-up completed in %s", time.Since(start))
	}
	return err
}
