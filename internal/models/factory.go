package models

import (
	"fmt"
	"math/rand"
)

type ModelConfig struct {
	Algorithm       string `yaml:"algorithm"`
	MaxDepth        int    `yaml:"max_depth"`
	MinSamplesSplit int    `yaml:"min_samples_split"`
	MinSamplesLeaf  int    `yaml:"min_samples_leaf"`
}

// Factory builds a fresh, unfitted model. Each call gets its own RNG.
type Factory func(rng *rand.Rand) Model

func CreateModel(config ModelConfig, rng *rand.Rand) (Model, error) {
	switch config.Algorithm {
	case "tree", "":
		return NewDecisionTree(config.MaxDepth, config.MinSamplesSplit).
			WithMinSamplesLeaf(config.MinSamplesLeaf).
			WithRand(rng), nil

	default:
		return nil, fmt.Errorf("unknown algorithm: %s", config.Algorithm)
	}
}

// NewFactory validates the config once and returns a Factory for it.
func NewFactory(config ModelConfig) (Factory, error) {
	if _, err := CreateModel(config, nil); err != nil {
		return nil, err
	}
	return func(rng *rand.Rand) Model {
		model, _ := CreateModel(config, rng)
		return model
	}, nil
}

// DefaultConfig mirrors an unconstrained CART tree: no depth limit, split
// any node with two or more samples, single-sample leaves.
func DefaultConfig() ModelConfig {
	return ModelConfig{
		Algorithm:       "tree",
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}
