package experiment

import (
	"fmt"
	"os"

	"provclassifier/internal/balance"
	"provclassifier/internal/evaluation"
	"provclassifier/internal/models"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Iterations int    `yaml:"iterations"`
	Folds      int    `yaml:"folds"`
	Seed       int64  `yaml:"seed"`
	Balance    bool   `yaml:"balance"`
	Workers    int    `yaml:"workers"`
	RunLabel   string `yaml:"run_label"`
	SMOTE      struct {
		KNeighbors int `yaml:"k_neighbors"`
	} `yaml:"smote"`
	Tree    models.ModelConfig `yaml:"tree"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func DefaultConfig() *Config {
	conf := &Config{}
	conf.ApplyDefaults()
	return conf
}

// LoadConfig reads a YAML config; fields left out keep their defaults.
func LoadConfig(path string) (*Config, error) {
	conf := &Config{}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	if err := yaml.Unmarshal(raw, conf); err != nil {
		return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return conf, nil
}

func (c *Config) ApplyDefaults() {
	if c.Iterations == 0 {
		c.Iterations = evaluation.DefaultIterations
	}
	if c.Folds == 0 {
		c.Folds = evaluation.DefaultFolds
	}
	if c.SMOTE.KNeighbors == 0 {
		c.SMOTE.KNeighbors = balance.DefaultKNeighbors
	}
	if c.Tree.Algorithm == "" {
		c.Tree.Algorithm = "tree"
	}
	if c.Tree.MinSamplesSplit == 0 {
		c.Tree.MinSamplesSplit = 2
	}
	if c.Tree.MinSamplesLeaf == 0 {
		c.Tree.MinSamplesLeaf = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.Folds < 2 {
		return fmt.Errorf("folds must be at least 2, got %d", c.Folds)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.SMOTE.KNeighbors < 1 {
		return fmt.Errorf("smote.k_neighbors must be positive, got %d", c.SMOTE.KNeighbors)
	}
	if c.Tree.MaxDepth < 0 {
		return fmt.Errorf("tree.max_depth must not be negative, got %d", c.Tree.MaxDepth)
	}
	if _, err := models.NewFactory(c.Tree); err != nil {
		return err
	}
	return nil
}
