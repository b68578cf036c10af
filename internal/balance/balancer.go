package balance

import (
	"fmt"

	"provclassifier/internal/data"
	"provclassifier/internal/preprocessing"

	"github.com/rs/zerolog/log"
)

type Report struct {
	OriginalShape  data.Shape
	BalancedShape  data.Shape
	Passes         int
	OriginalCounts map[string]int
	BalancedCounts map[string]int
}

// Balancer repeats oversampling passes until all classes have the same size.
type Balancer struct {
	Oversampler MinorityOversampler
}

func NewBalancer(oversampler MinorityOversampler) *Balancer {
	return &Balancer{Oversampler: oversampler}
}

// Balance returns a new table with equinumerous classes. The input table is
// not modified; its rows come first in the result, synthetic rows follow.
func (b *Balancer) Balance(t *data.Table) (*data.Table, Report, error) {
	var report Report
	if t == nil || t.Len() == 0 {
		return nil, report, fmt.Errorf("%w: empty table", data.ErrDegenerateInput)
	}
	if b.Oversampler == nil {
		return nil, report, fmt.Errorf("no oversampler configured")
	}

	report.OriginalShape = t.Shape()
	report.OriginalCounts = t.ClassCounts()
	log.Info().
		Stringer("shape", report.OriginalShape).
		Interface("classes", report.OriginalCounts).
		Msg("original data shape")

	if len(report.OriginalCounts) < 2 {
		return nil, report, fmt.Errorf("%w: balancing needs at least 2 classes, found %d",
			data.ErrDegenerateInput, len(report.OriginalCounts))
	}

	if t.IsBalanced() {
		out := t.Clone()
		report.BalancedShape = out.Shape()
		report.BalancedCounts = out.ClassCounts()
		log.Info().Msg("classes already balanced")
		return out, report, nil
	}

	encoder := preprocessing.NewLabelEncoder()
	y, err := encoder.FitTransform(t.Labels)
	if err != nil {
		return nil, report, err
	}
	X, err := t.Matrix()
	if err != nil {
		return nil, report, err
	}
	origRows := len(X)

	deficit := classDeficit(y)
	for deficit > 0 {
		prevRows := len(X)
		X, y, err = b.Oversampler.Oversample(X, y)
		if err != nil {
			return nil, report, fmt.Errorf("oversampling pass %d: %w", report.Passes+1, err)
		}
		report.Passes++

		if len(X) < prevRows || len(X) != len(y) {
			return nil, report, fmt.Errorf("oversampling pass %d returned %d rows and %d labels from %d rows",
				report.Passes, len(X), len(y), prevRows)
		}

		next := classDeficit(y)
		if next >= deficit {
			return nil, report, fmt.Errorf("oversampling pass %d made no progress towards balance", report.Passes)
		}
		deficit = next
		log.Debug().Int("pass", report.Passes).Int("rows", len(X)).Int("deficit", deficit).Msg("oversampling pass done")
	}

	synthLabels, err := encoder.InverseTransform(y[origRows:])
	if err != nil {
		return nil, report, err
	}
	synth, err := data.FromMatrix(t.Features, X[origRows:], synthLabels)
	if err != nil {
		return nil, report, err
	}

	out := t.Clone()
	out.Rows = append(out.Rows, synth.Rows...)
	out.Labels = append(out.Labels, synth.Labels...)

	report.BalancedShape = out.Shape()
	report.BalancedCounts = out.ClassCounts()
	log.Info().
		Stringer("shape", report.BalancedShape).
		Int("passes", report.Passes).
		Msg("balanced data shape")

	return out, report, nil
}

// classDeficit is the number of rows missing for every class to reach the
// largest one.
func classDeficit(y []int) int {
	counts := make(map[int]int)
	for _, label := range y {
		counts[label]++
	}
	hi := 0
	for _, c := range counts {
		if c > hi {
			hi = c
		}
	}
	deficit := 0
	for _, c := range counts {
		deficit += hi - c
	}
	return deficit
}
