package profiling

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Summary describes the distribution of one numeric column
type Summary struct {
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Median   float64 `json:"median"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	Skewness float64 `json:"skewness"`

	// Tukey whiskers: the most extreme values within 1.5 IQR of the quartiles
	LowerFence float64 `json:"lower_fence"`
	UpperFence float64 `json:"upper_fence"`
	Outliers   int     `json:"outliers"`

	// Integral is true when every value is a whole number
	Integral bool `json:"integral"`
}

// DistributionAnalyzer handles distribution shape analysis
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// Summarize computes the summary of a non-empty sample
func (da *DistributionAnalyzer) Summarize(data []float64) (Summary, error) {
	var s Summary
	if len(data) == 0 {
		return s, fmt.Errorf("cannot summarize an empty sample")
	}
	s.Count = len(data)

	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	if len(data) > 1 {
		if s.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return s, err
		}
	}

	// Quartile needs at least two values to split the sample
	if len(data) == 1 {
		s.Q1, s.Q3 = data[0], data[0]
	} else {
		q, err := stats.Quartile(data)
		if err != nil {
			return s, err
		}
		s.Q1, s.Q3 = q.Q1, q.Q3
	}

	s.LowerFence, s.UpperFence, s.Outliers = whiskers(data, s.Q1, s.Q3)
	s.Skewness = calculateSkewness(data, s.Mean, s.StdDev)
	s.Integral = isIntegral(data)
	return s, nil
}

// whiskers returns the Tukey fences clipped to observed values and the number
// of points outside them
func whiskers(data []float64, q1, q3 float64) (lower, upper float64, outliers int) {
	iqr := q3 - q1
	lowerBound := q1 - 1.5*iqr
	upperBound := q3 + 1.5*iqr

	lower, upper = math.Inf(1), math.Inf(-1)
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outliers++
			continue
		}
		lower = math.Min(lower, x)
		upper = math.Max(upper, x)
	}
	return lower, upper, outliers
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0

	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n

	// Bias correction for sample skewness
	correction := math.Sqrt(n*(n-1)) / (n - 2)
	return skewness * correction
}

func isIntegral(data []float64) bool {
	for _, x := range data {
		if x != math.Trunc(x) {
			return false
		}
	}
	return true
}
