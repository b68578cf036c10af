package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogPartition(t *testing.T) {
	cat := Default()
	require.NoError(t, cat.Validate())

	combined, ok := cat.Lookup(Combined)
	require.True(t, ok)
	generic, _ := cat.Lookup(Generic)
	prov, _ := cat.Lookup(Provenance)

	assert.Equal(t, 22, combined.Len())
	assert.Equal(t, 6, generic.Len())
	assert.Equal(t, 16, prov.Len())

	union := append(append([]string{}, generic.Metrics...), prov.Metrics...)
	assert.ElementsMatch(t, combined.Metrics, union)
	for _, g := range generic.Metrics {
		assert.NotContains(t, prov.Metrics, g)
	}
}

func TestDefaultCatalogOrder(t *testing.T) {
	sets := Default().Sets()
	require.Len(t, sets, 3)
	assert.Equal(t, Combined, sets[0].Name)
	assert.Equal(t, Generic, sets[1].Name)
	assert.Equal(t, Provenance, sets[2].Name)
	assert.Equal(t, "entities", sets[0].Metrics[0])
	assert.Equal(t, "powerlaw_alpha", sets[0].Metrics[21])
}

func TestCatalogIsImmutable(t *testing.T) {
	cat := Default()
	sets := cat.Sets()
	sets[0].Metrics[0] = "tampered"
	fs, _ := cat.Lookup(Combined)
	fs.Metrics[1] = "tampered"

	again := cat.Combined()
	assert.Equal(t, "entities", again.Metrics[0])
	assert.Equal(t, "agents", again.Metrics[1])
}

func TestValidateDetectsOverlap(t *testing.T) {
	cat, err := NewCatalog(
		FeatureSet{Name: Combined, Metrics: []string{"a", "b", "c"}},
		FeatureSet{Name: Generic, Metrics: []string{"a", "b"}},
		FeatureSet{Name: Provenance, Metrics: []string{"b", "c"}},
	)
	require.NoError(t, err)
	assert.Error(t, cat.Validate())
}

func TestValidateDetectsGap(t *testing.T) {
	cat, err := NewCatalog(
		FeatureSet{Name: Combined, Metrics: []string{"a", "b", "c", "d"}},
		FeatureSet{Name: Generic, Metrics: []string{"a"}},
		FeatureSet{Name: Provenance, Metrics: []string{"b", "c"}},
	)
	require.NoError(t, err)
	assert.Error(t, cat.Validate())
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog(
		FeatureSet{Name: "x", Metrics: []string{"a"}},
		FeatureSet{Name: "x", Metrics: []string{"b"}},
	)
	assert.Error(t, err)

	_, err = NewCatalog(FeatureSet{Name: "empty"})
	assert.Error(t, err)
}

func TestRequiredColumns(t *testing.T) {
	cols := Default().RequiredColumns()
	assert.Equal(t, Default().Combined().Metrics, cols)
}
