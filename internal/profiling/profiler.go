// Package profiling summarizes the numeric columns of a dataset.
package profiling

import (
	"incomedash/domain/table"
)

// DataProfiler profiles dataset columns
type DataProfiler struct {
	analyzer *DistributionAnalyzer
}

// NewDataProfiler creates a new data profiler
func NewDataProfiler() *DataProfiler {
	return &DataProfiler{analyzer: NewDistributionAnalyzer()}
}

// ProfileColumn summarizes the non-missing values of one numeric or boolean
// column. ok is false when the column has no usable values.
func (dp *DataProfiler) ProfileColumn(t *table.Table, name string) (Summary, bool) {
	data := t.Floats(name)
	if len(data) == 0 {
		return Summary{}, false
	}
	s, err := dp.analyzer.Summarize(data)
	if err != nil {
		return Summary{}, false
	}
	return s, true
}

// ProfileDataset summarizes every numeric column
func (dp *DataProfiler) ProfileDataset(t *table.Table) map[string]Summary {
	results := make(map[string]Summary)
	for _, name := range t.ColumnsOfKind(table.KindNumeric) {
		if s, ok := dp.ProfileColumn(t, name); ok {
			results[name] = s
		}
	}
	return results
}
