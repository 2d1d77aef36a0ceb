package model

import (
	"fmt"

	"incomedash/domain/table"
)

// FormatVersion is the only artifact layout this package reads
const FormatVersion = 1

// Step types
const (
	StepNumeric     = "numeric"
	StepCategorical = "categorical"
	StepBoolean     = "boolean"
)

// Regressor kinds
const (
	RegressorLinear       = "linear"
	RegressorDecisionTree = "decision_tree"
	RegressorRandomForest = "random_forest"
)

// Target transforms whose inverse is applied to raw regressor output
const (
	TransformNone  = ""
	TransformLog   = "log"
	TransformLog1p = "log1p"
)

// Artifact is the on-disk pipeline: preprocessing steps, a regressor and an
// optional target transform
type Artifact struct {
	FormatVersion   int           `json:"format_version"`
	Name            string        `json:"name"`
	Description     string        `json:"description"` // markdown
	FeatureNamesIn  []string      `json:"feature_names_in"`
	Preprocessor    Preprocessor  `json:"preprocessor"`
	Regressor       RegressorSpec `json:"regressor"`
	TargetTransform string        `json:"target_transform"`
}

// Preprocessor lists one step per input feature. Step order defines the
// layout of the encoded vector the regressor sees.
type Preprocessor struct {
	Steps []Step `json:"steps"`
}

// Step encodes one input column
type Step struct {
	Column string `json:"column"`
	Type   string `json:"type"`

	// Impute replaces a missing value. Without it a missing value is rejected.
	Impute *table.Value `json:"impute,omitempty"`

	// Standard scaling for numeric steps: (x - mean) / scale
	Mean  *float64 `json:"mean,omitempty"`
	Scale *float64 `json:"scale,omitempty"`

	// One-hot settings for categorical steps
	Categories    []string `json:"categories,omitempty"`
	HandleUnknown string   `json:"handle_unknown,omitempty"` // error (default) or ignore
}

// Width is the number of encoded features this step produces
func (s Step) Width() int {
	if s.Type == StepCategorical {
		return len(s.Categories)
	}
	return 1
}

// RegressorSpec holds the fitted parameters of one of the supported regressors
type RegressorSpec struct {
	Kind         string    `json:"kind"`
	Coefficients []float64 `json:"coefficients,omitempty"`
	Intercept    float64   `json:"intercept,omitempty"`
	Nodes        []Node    `json:"nodes,omitempty"` // decision_tree
	Trees        [][]Node  `json:"trees,omitempty"` // random_forest
}

// Node is one entry of a flattened regression tree. Children always come
// after their parent.
type Node struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// EncodedWidth is the total width of the encoded feature vector
func (p Preprocessor) EncodedWidth() int {
	n := 0
	for _, s := range p.Steps {
		n += s.Width()
	}
	return n
}

// Validate checks that the artifact is internally consistent
func (a *Artifact) Validate() error {
	if a.FormatVersion != FormatVersion {
		return fmt.Errorf("unsupported format_version %d", a.FormatVersion)
	}
	if len(a.FeatureNamesIn) == 0 {
		return fmt.Errorf("feature_names_in is empty")
	}

	features := make(map[string]bool, len(a.FeatureNamesIn))
	for _, name := range a.FeatureNamesIn {
		if name == "" {
			return fmt.Errorf("feature_names_in contains an empty name")
		}
		if features[name] {
			return fmt.Errorf("duplicate feature %q", name)
		}
		features[name] = true
	}

	covered := make(map[string]bool, len(a.Preprocessor.Steps))
	for i, step := range a.Preprocessor.Steps {
		if !features[step.Column] {
			return fmt.Errorf("step %d references unknown column %q", i, step.Column)
		}
		if covered[step.Column] {
			return fmt.Errorf("column %q has more than one step", step.Column)
		}
		covered[step.Column] = true
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %q: %w", step.Column, err)
		}
	}
	for _, name := range a.FeatureNamesIn {
		if !covered[name] {
			return fmt.Errorf("feature %q has no preprocessing step", name)
		}
	}

	switch a.TargetTransform {
	case TransformNone, TransformLog, TransformLog1p:
	default:
		return fmt.Errorf("unsupported target_transform %q", a.TargetTransform)
	}

	return a.Regressor.validate(a.Preprocessor.EncodedWidth())
}

func (s Step) validate() error {
	switch s.Type {
	case StepNumeric:
		if s.Impute != nil && !s.Impute.IsNumeric() {
			return fmt.Errorf("numeric impute value must be a number")
		}
		if (s.Mean == nil) != (s.Scale == nil) {
			return fmt.Errorf("mean and scale must be set together")
		}
		if s.Scale != nil && *s.Scale == 0 {
			return fmt.Errorf("scale must be non-zero")
		}
	case StepCategorical:
		if s.Impute != nil && !s.Impute.IsString() {
			return fmt.Errorf("categorical impute value must be a string")
		}
		if len(s.Categories) == 0 {
			return fmt.Errorf("categorical step has no categories")
		}
		switch s.HandleUnknown {
		case "", "error", "ignore":
		default:
			return fmt.Errorf("unsupported handle_unknown %q", s.HandleUnknown)
		}
		seen := make(map[string]bool, len(s.Categories))
		for _, c := range s.Categories {
			if seen[c] {
				return fmt.Errorf("duplicate category %q", c)
			}
			seen[c] = true
		}
	case StepBoolean:
		if s.Impute != nil && !s.Impute.IsBoolean() {
			return fmt.Errorf("boolean impute value must be true or false")
		}
	default:
		return fmt.Errorf("unsupported step type %q", s.Type)
	}
	return nil
}

func (r RegressorSpec) validate(width int) error {
	switch r.Kind {
	case RegressorLinear:
		if len(r.Coefficients) != width {
			return fmt.Errorf("linear regressor has %d coefficients, encoded width is %d", len(r.Coefficients), width)
		}
	case RegressorDecisionTree:
		return validateTree(r.Nodes, width)
	case RegressorRandomForest:
		if len(r.Trees) == 0 {
			return fmt.Errorf("random forest has no trees")
		}
		for i, tree := range r.Trees {
			if err := validateTree(tree, width); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported regressor kind %q", r.Kind)
	}
	return nil
}

func validateTree(nodes []Node, width int) error {
	if len(nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range nodes {
		if n.IsLeaf {
			continue
		}
		if n.FeatureIdx < 0 || n.FeatureIdx >= width {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.FeatureIdx)
		}
		for _, child := range []int{n.LeftChild, n.RightChild} {
			if child <= i || child >= len(nodes) {
				return fmt.Errorf("node %d: child index %d out of range", i, child)
			}
		}
	}
	return nil
}
