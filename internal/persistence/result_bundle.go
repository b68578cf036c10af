package persistence

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"provclassifier/internal/data"
	"provclassifier/internal/experiment"
)

// ResultBundle keeps the two result tables of a run together with what is
// needed to tell runs apart, so plots can be redrawn without re-running.
type ResultBundle struct {
	Results   experiment.Results
	Metadata  BundleMetadata
	CreatedAt time.Time
}

type BundleMetadata struct {
	Dataset       string
	RunLabel      string
	Balanced      bool
	OriginalShape data.Shape
	BalancedShape data.Shape
	Iterations    int
	Folds         int
	Seed          int64
	Parameters    map[string]string
}

func NewResultBundle(results *experiment.Results, conf *experiment.Config) *ResultBundle {
	return &ResultBundle{
		Results:   *results,
		CreatedAt: time.Now(),
		Metadata: BundleMetadata{
			RunLabel:   conf.RunLabel,
			Balanced:   conf.Balance,
			Iterations: conf.Iterations,
			Folds:      conf.Folds,
			Seed:       conf.Seed,
			Parameters: map[string]string{
				"algorithm":         conf.Tree.Algorithm,
				"max_depth":         fmt.Sprint(conf.Tree.MaxDepth),
				"min_samples_split": fmt.Sprint(conf.Tree.MinSamplesSplit),
				"min_samples_leaf":  fmt.Sprint(conf.Tree.MinSamplesLeaf),
				"smote_k_neighbors": fmt.Sprint(conf.SMOTE.KNeighbors),
			},
		},
	}
}

func (rb *ResultBundle) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(rb); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}

	return nil
}

func LoadResultBundle(filename string) (*ResultBundle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var bundle ResultBundle
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}

	return &bundle, nil
}

func (rb *ResultBundle) SaveMetadata(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "Dataset: %s\n", rb.Metadata.Dataset)
	fmt.Fprintf(file, "Run label: %s\n", rb.Metadata.RunLabel)
	fmt.Fprintf(file, "Created: %s\n", rb.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(file, "Balanced: %t %s -> %s\n", rb.Metadata.Balanced, rb.Metadata.OriginalShape, rb.Metadata.BalancedShape)
	fmt.Fprintf(file, "Iterations: %d (%d folds)\n", rb.Metadata.Iterations, rb.Metadata.Folds)
	fmt.Fprintf(file, "Seed: %d\n", rb.Metadata.Seed)
	for _, s := range rb.Results.Summaries {
		fmt.Fprintln(file, s.Line)
	}

	return nil
}
