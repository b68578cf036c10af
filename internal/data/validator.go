package data

import (
	"fmt"
	"sort"
)

type DataValidator struct{}

func NewDataValidator() *DataValidator {
	return &DataValidator{}
}

// ValidateSchema checks that the table carries every required metric column
// and that rows and labels line up.
func (dv *DataValidator) ValidateSchema(t *Table, required []string) error {
	if t == nil {
		return fmt.Errorf("%w: no table", ErrSchema)
	}

	if len(t.Rows) != len(t.Labels) {
		return fmt.Errorf("%w: %d rows but %d labels", ErrSchema, len(t.Rows), len(t.Labels))
	}

	var missing []string
	for _, name := range required {
		if name == LabelColumn {
			continue
		}
		if t.ColumnIndex(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %v", ErrSchema, missing)
	}

	for i, row := range t.Rows {
		if len(row) != len(t.Features) {
			return fmt.Errorf("%w: inconsistent feature count at row %d: expected %d, got %d",
				ErrSchema, i, len(t.Features), len(row))
		}
		if t.Labels[i] == "" {
			return fmt.Errorf("%w: missing %s at row %d", ErrSchema, LabelColumn, i)
		}
	}

	return nil
}

// ValidateClasses requires at least two classes with minMembers rows each.
func (dv *DataValidator) ValidateClasses(t *Table, minMembers int) error {
	if len(t.Labels) == 0 {
		return fmt.Errorf("%w: labels are empty", ErrDegenerateInput)
	}

	counts := t.ClassCounts()
	if len(counts) < 2 {
		return fmt.Errorf("%w: dataset must have at least 2 classes, found %d", ErrDegenerateInput, len(counts))
	}

	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		if counts[c] < minMembers {
			return fmt.Errorf("%w: class %s has %d members, at least %d required",
				ErrInsufficientData, c, counts[c], minMembers)
		}
	}

	return nil
}

func (dv *DataValidator) GetDatasetStats(t *Table) map[string]any {
	stats := make(map[string]any)
	stats["samples"] = t.Len()
	stats["features"] = len(t.Features)
	counts := t.ClassCounts()
	stats["classes"] = len(counts)
	stats["class_distribution"] = counts
	return stats
}
