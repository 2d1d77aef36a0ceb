package model

import (
	"gonum.org/v1/gonum/floats"
)

// regressor maps an encoded vector to a raw prediction
type regressor interface {
	predict(x []float64) float64
}

type linearRegressor struct {
	coefficients []float64
	intercept    float64
}

func (r *linearRegressor) predict(x []float64) float64 {
	return floats.Dot(r.coefficients, x) + r.intercept
}

// regressionTree walks a validated node array; children always follow their
// parent so the walk terminates
type regressionTree struct {
	nodes []Node
}

func (t *regressionTree) predict(x []float64) float64 {
	idx := 0
	for {
		node := t.nodes[idx]
		if node.IsLeaf {
			return node.Value
		}
		if x[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

// forest averages its trees
type forest struct {
	trees []*regressionTree
}

func (f *forest) predict(x []float64) float64 {
	outputs := make([]float64, len(f.trees))
	for i, t := range f.trees {
		outputs[i] = t.predict(x)
	}
	return floats.Sum(outputs) / float64(len(outputs))
}

func newRegressor(spec RegressorSpec) regressor {
	switch spec.Kind {
	case RegressorLinear:
		return &linearRegressor{
			coefficients: append([]float64(nil), spec.Coefficients...),
			intercept:    spec.Intercept,
		}
	case RegressorDecisionTree:
		return &regressionTree{nodes: append([]Node(nil), spec.Nodes...)}
	default:
		trees := make([]*regressionTree, len(spec.Trees))
		for i, nodes := range spec.Trees {
			trees[i] = &regressionTree{nodes: append([]Node(nil), nodes...)}
		}
		return &forest{trees: trees}
	}
}
