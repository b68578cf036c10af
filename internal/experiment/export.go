package experiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

const (
	AccuracyFile   = "accuracies.csv"
	ImportanceFile = "importances.csv"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ExportAccuracies writes the Metrics,Accuracy table.
func (r *Results) ExportAccuracies(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Metrics", "Accuracy"}); err != nil {
		return err
	}
	for _, s := range r.Accuracies {
		if err := writer.Write([]string{s.Metrics, formatFloat(s.Accuracy)}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportImportances writes one column per combined metric, one row per fold.
func (r *Results) ExportImportances(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(r.Importances.Columns); err != nil {
		return err
	}
	record := make([]string, len(r.Importances.Columns))
	for i, row := range r.Importances.Rows {
		if len(row) != len(record) {
			return fmt.Errorf("importance row %d has %d values, expected %d", i, len(row), len(record))
		}
		for j, v := range row {
			record[j] = formatFloat(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportResults writes both tables into dir and returns their paths.
func (r *Results) ExportResults(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	targets := []struct {
		name  string
		write func(io.Writer) error
	}{
		{AccuracyFile, r.ExportAccuracies},
		{ImportanceFile, r.ExportImportances},
	}

	var paths []string
	for _, target := range targets {
		path := filepath.Join(dir, target.name)
		if err := writeFile(path, target.write); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
