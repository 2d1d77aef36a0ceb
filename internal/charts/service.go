package charts

import (
	"context"
	stderrors "errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"incomedash/domain/table"
	"incomedash/internal"
	"incomedash/internal/errors"
)

// Builder produces one chart from the dataset
type Builder func(t *table.Table) (*Chart, error)

// Definition names a chart and how to build it
type Definition struct {
	Name  string
	Build Builder
}

// Definitions lists the dashboard charts in display order
var Definitions = []Definition{
	{"renda_tempo_emprego", IncomeByTenure},
	{"renda_qt_pessoas_residencia", IncomeByHousehold},
	{"renda_qtd_filhos", IncomeByChildren},
	{"renda_idade", IncomeByAge},
	{"renda_veiculo", IncomeByVehicle},
	{"correlacao", Correlation},
}

// DatasetFunc returns the shared dataset
type DatasetFunc func(ctx context.Context) (*table.Table, error)

// Service builds charts on demand and keeps them in an LRU keyed by name. The
// dataset is immutable so a cached chart never goes stale.
type Service struct {
	dataset DatasetFunc
	cache   *lru.Cache[string, *Chart]
	logger  *internal.Logger
}

// NewService creates a chart service holding at most size charts
func NewService(size int, dataset DatasetFunc) (*Service, error) {
	cache, err := lru.New[string, *Chart](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chart cache")
	}
	return &Service{
		dataset: dataset,
		cache:   cache,
		logger:  internal.DefaultLogger.With("Charts"),
	}, nil
}

// Names returns, in display order, the charts the dataset supports
func (s *Service) Names(ctx context.Context) ([]string, error) {
	var names []string
	for _, def := range Definitions {
		if _, err := s.Get(ctx, def.Name); err != nil {
			if errors.HasCode(err, errors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		names = append(names, def.Name)
	}
	return names, nil
}

// Get returns the named chart. Unknown names and charts the dataset cannot
// support are NOT_FOUND; a dataset failure keeps its DATA_ACCESS_ERROR code.
func (s *Service) Get(ctx context.Context, name string) (*Chart, error) {
	if c, ok := s.cache.Get(name); ok {
		return c, nil
	}

	def, ok := lookup(name)
	if !ok {
		return nil, errors.NotFound("chart " + name)
	}

	t, err := s.dataset(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "dataset unavailable")
	}

	c, err := def.Build(t)
	if err != nil {
		if stderrors.Is(err, ErrUnavailable) {
			s.logger.Debug("chart %s skipped: %v", name, err)
			return nil, &errors.AppError{Code: errors.CodeNotFound, Message: "chart " + name + " not available", Cause: err}
		}
		return nil, errors.Wrapf(err, "failed to build chart %s", name)
	}

	s.cache.Add(name, c)
	s.logger.Debug("chart %s built with %d traces", name, len(c.Traces))
	return c, nil
}

func lookup(name string) (Definition, bool) {
	for _, def := range Definitions {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
