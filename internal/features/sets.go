package features

import (
	"fmt"
)

const (
	Combined   = "combined"
	Generic    = "generic"
	Provenance = "provenance"
)

var combinedMetrics = []string{
	"entities", "agents", "activities", // PROV node types
	"nodes", "edges", "diameter", "assortativity",
	"acc", "acc_e", "acc_a", "acc_ag", // average clustering coefficients
	"mfd_e_e", "mfd_e_a", "mfd_e_ag",
	"mfd_a_e", "mfd_a_a", "mfd_a_ag",
	"mfd_ag_e", "mfd_ag_a", "mfd_ag_ag",
	"mfd_der",
	"powerlaw_alpha",
}

var genericMetrics = []string{
	"nodes", "edges", "diameter", "assortativity",
	"acc",
	"powerlaw_alpha",
}

var provenanceMetrics = []string{
	"entities", "agents", "activities",
	"acc_e", "acc_a", "acc_ag",
	"mfd_e_e", "mfd_e_a", "mfd_e_ag",
	"mfd_a_e", "mfd_a_a", "mfd_a_ag",
	"mfd_ag_e", "mfd_ag_a", "mfd_ag_ag",
	"mfd_der",
}

// FeatureSet is a named, ordered list of metric columns.
type FeatureSet struct {
	Name    string
	Metrics []string
}

func (fs FeatureSet) Len() int {
	return len(fs.Metrics)
}

// Catalog holds the feature subsets compared by an experiment. It is built
// once and handed out by value; accessors return copies.
type Catalog struct {
	sets []FeatureSet
}

func NewCatalog(sets ...FeatureSet) (Catalog, error) {
	if len(sets) == 0 {
		return Catalog{}, fmt.Errorf("catalog needs at least one feature set")
	}
	seen := make(map[string]bool)
	cp := make([]FeatureSet, len(sets))
	for i, fs := range sets {
		if fs.Name == "" {
			return Catalog{}, fmt.Errorf("feature set %d has no name", i)
		}
		if seen[fs.Name] {
			return Catalog{}, fmt.Errorf("duplicate feature set %s", fs.Name)
		}
		seen[fs.Name] = true
		if fs.Len() == 0 {
			return Catalog{}, fmt.Errorf("feature set %s is empty", fs.Name)
		}
		cp[i] = FeatureSet{Name: fs.Name, Metrics: copyNames(fs.Metrics)}
	}
	return Catalog{sets: cp}, nil
}

// Default returns the combined/generic/provenance catalog used in the paper.
func Default() Catalog {
	return Catalog{sets: []FeatureSet{
		{Name: Combined, Metrics: copyNames(combinedMetrics)},
		{Name: Generic, Metrics: copyNames(genericMetrics)},
		{Name: Provenance, Metrics: copyNames(provenanceMetrics)},
	}}
}

func (c Catalog) Sets() []FeatureSet {
	out := make([]FeatureSet, len(c.sets))
	for i, fs := range c.sets {
		out[i] = FeatureSet{Name: fs.Name, Metrics: copyNames(fs.Metrics)}
	}
	return out
}

func (c Catalog) Lookup(name string) (FeatureSet, bool) {
	for _, fs := range c.sets {
		if fs.Name == name {
			return FeatureSet{Name: fs.Name, Metrics: copyNames(fs.Metrics)}, true
		}
	}
	return FeatureSet{}, false
}

// Combined returns the set whose importances are reported. Falls back to the
// first set for custom catalogs without a "combined" entry.
func (c Catalog) Combined() FeatureSet {
	if fs, ok := c.Lookup(Combined); ok {
		return fs
	}
	if len(c.sets) == 0 {
		return FeatureSet{}
	}
	return FeatureSet{Name: c.sets[0].Name, Metrics: copyNames(c.sets[0].Metrics)}
}

// RequiredColumns is the union of all metric names in catalog order.
func (c Catalog) RequiredColumns() []string {
	seen := make(map[string]bool)
	var out []string
	for _, fs := range c.sets {
		for _, m := range fs.Metrics {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// Validate checks that generic and provenance partition combined.
func (c Catalog) Validate() error {
	combined, ok := c.Lookup(Combined)
	if !ok {
		return fmt.Errorf("catalog has no %s set", Combined)
	}
	generic, ok := c.Lookup(Generic)
	if !ok {
		return fmt.Errorf("catalog has no %s set", Generic)
	}
	prov, ok := c.Lookup(Provenance)
	if !ok {
		return fmt.Errorf("catalog has no %s set", Provenance)
	}

	for _, fs := range []FeatureSet{combined, generic, prov} {
		if dup := firstDuplicate(fs.Metrics); dup != "" {
			return fmt.Errorf("metric %s listed twice in %s", dup, fs.Name)
		}
	}

	genericSet := toSet(generic.Metrics)
	for _, m := range prov.Metrics {
		if genericSet[m] {
			return fmt.Errorf("metric %s is both %s and %s", m, Generic, Provenance)
		}
	}

	union := toSet(generic.Metrics)
	for _, m := range prov.Metrics {
		union[m] = true
	}
	combinedSet := toSet(combined.Metrics)
	if len(union) != len(combinedSet) {
		return fmt.Errorf("%s and %s cover %d metrics, %s has %d",
			Generic, Provenance, len(union), Combined, len(combinedSet))
	}
	for m := range union {
		if !combinedSet[m] {
			return fmt.Errorf("metric %s missing from %s", m, Combined)
		}
	}
	return nil
}

func copyNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func firstDuplicate(names []string) string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return n
		}
		seen[n] = true
	}
	return ""
}
