package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

type CSVReader struct {
	filename string
}

func NewCSVReader(filename string) (*CSVReader, error) {
	if filename == "" {
		return nil, fmt.Errorf("no input file given")
	}
	return &CSVReader{filename: filename}, nil
}

func (cr *CSVReader) LoadTable() (*Table, error) {
	file, err := os.Open(cr.filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cr.filename, err)
	}
	defer file.Close()

	t, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", cr.filename, err)
	}
	return t, nil
}

// ReadCSV parses a header-named table. The label column is found by name and
// may sit anywhere in the header; every other column is a metric.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%w: empty input", ErrSchema)
	}

	header := records[0]
	labelCol := -1
	var features []string
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name != LabelColumn {
			if seen[name] {
				return nil, fmt.Errorf("%w: duplicate column %s", ErrSchema, name)
			}
			seen[name] = true
		}
		if name == LabelColumn {
			if labelCol >= 0 {
				return nil, fmt.Errorf("%w: duplicate %s column", ErrSchema, LabelColumn)
			}
			labelCol = i
			continue
		}
		features = append(features, name)
	}
	if labelCol < 0 {
		return nil, fmt.Errorf("%w: missing %s column", ErrSchema, LabelColumn)
	}

	t := NewTable(features)
	for i, record := range records[1:] {
		line := i + 2
		values := make([]decimal.Decimal, 0, len(features))
		label := ""
		for j, cell := range record {
			cell = strings.TrimSpace(cell)
			if j == labelCol {
				if cell == "" {
					return nil, fmt.Errorf("%w: empty label at line %d", ErrSchema, line)
				}
				label = cell
				continue
			}
			val, err := decimal.NewFromString(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid value %q for %s at line %d",
					ErrSchema, cell, header[j], line)
			}
			if _, err := toFloat(val); err != nil {
				return nil, fmt.Errorf("%s at line %d: %w", header[j], line, err)
			}
			values = append(values, val)
		}
		if err := t.Append(values, label); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	return t, nil
}

// WriteCSV writes the metric columns followed by the label column.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns()); err != nil {
		return err
	}

	record := make([]string, len(t.Features)+1)
	for i, row := range t.Rows {
		for j, v := range row {
			record[j] = v.String()
		}
		record[len(t.Features)] = t.Labels[i]
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func SaveCSV(filename string, t *Table) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer file.Close()

	if err := WriteCSV(file, t); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}
