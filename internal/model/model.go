// Package model loads trained income-regression pipelines.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"incomedash/domain/core"
	"incomedash/domain/table"
	"incomedash/internal"
	"incomedash/internal/errors"
)

// Model is a trained pipeline: it predicts from rows and lists the ordered
// feature names it was fitted on
type Model interface {
	Predict(rows []table.Row) ([]float64, error)
	FeatureNames() []string
}

// Describer is implemented by models that carry display metadata
type Describer interface {
	Name() string
	Description() string
	Fingerprint() core.Hash
}

// Pipeline is a loaded artifact. It is safe for concurrent use.
type Pipeline struct {
	name         string
	description  string
	features     []string
	transform    string
	encoder      *encoder
	regressor    regressor
	regressorKey string
	fingerprint  core.Hash
}

// Load reads and validates a JSON pipeline artifact. All failures are
// MODEL_LOAD_ERROR.
func Load(path string) (Model, error) {
	logger := internal.DefaultLogger.With("ModelLoader")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ModelLoad("failed to read model artifact "+path, err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, errors.ModelLoad("invalid model artifact "+path, err)
	}

	logger.Info("loaded model %q (%s, %d features, sha256 %s) from %s", p.name, p.regressorKey, len(p.features), p.fingerprint.Short(), path)
	return p, nil
}

// Parse decodes and validates an artifact held in memory
func Parse(data []byte) (*Pipeline, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var artifact Artifact
	if err := decoder.Decode(&artifact); err != nil {
		return nil, fmt.Errorf("malformed artifact: %w", err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, err
	}
	p := FromArtifact(&artifact)
	p.fingerprint = core.NewHash(data)
	return p, nil
}

// FromArtifact builds a pipeline from an artifact that passed Validate
func FromArtifact(a *Artifact) *Pipeline {
	return &Pipeline{
		name:         a.Name,
		description:  a.Description,
		features:     append([]string(nil), a.FeatureNamesIn...),
		transform:    a.TargetTransform,
		encoder:      newEncoder(a.Preprocessor),
		regressor:    newRegressor(a.Regressor),
		regressorKey: a.Regressor.Kind,
	}
}

// FeatureNames returns a copy of the ordered feature list
func (p *Pipeline) FeatureNames() []string {
	return append([]string(nil), p.features...)
}

// Name returns the artifact name
func (p *Pipeline) Name() string { return p.name }

// Description returns the markdown description
func (p *Pipeline) Description() string { return p.description }

// Fingerprint is the SHA-256 of the artifact bytes, empty for pipelines built
// in memory
func (p *Pipeline) Fingerprint() core.Hash { return p.fingerprint }

// Predict encodes each row and returns one prediction per row, in the target's
// original units. Any row failing to encode fails the whole call.
func (p *Pipeline) Predict(rows []table.Row) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		x, err := p.encoder.encode(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p.inverse(p.regressor.predict(x))
	}
	return out, nil
}

func (p *Pipeline) inverse(y float64) float64 {
	switch p.transform {
	case TransformLog:
		return math.Exp(y)
	case TransformLog1p:
		return math.Expm1(y)
	}
	return y
}
