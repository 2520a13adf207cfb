package metrics

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CatalogueEntry describes one metric: its unit and the source-file column
// hints the ingester uses to find it in published workbooks.
type CatalogueEntry struct {
	ID          string   `yaml:"id"`
	DisplayName string   `yaml:"display_name"`
	Unit        string   `yaml:"unit"`
	Columns     []string `yaml:"columns,omitempty"` // accepted header spellings
}

// Catalogue is the metric reference data.
type Catalogue struct {
	Metrics []CatalogueEntry `yaml:"metrics"`
}

// defaultCatalogue covers the metrics the catchment engine reads. A
// deployment can extend it with a catalogue file.
var defaultCatalogue = Catalogue{
	Metrics: []CatalogueEntry{
		{
			ID:          MetricPopulation,
			DisplayName: "Population",
			Unit:        "persons",
			Columns:     []string{"population", "pop", "all ages"},
		},
		{
			ID:          MetricEmployment,
			DisplayName: "Total employment",
			Unit:        "jobs",
			Columns:     []string{"emp_total", "employment", "total employment"},
		},
		{
			ID:          MetricGDHI,
			DisplayName: "Gross disposable household income",
			Unit:        "GBP million",
			Columns:     []string{"gdhi_total", "gdhi", "gross disposable household income"},
		},
	},
}

// DefaultCatalogue returns the built-in metric catalogue.
func DefaultCatalogue() Catalogue {
	return defaultCatalogue
}

// LoadCatalogue reads a catalogue YAML file, merging it over the defaults:
// entries with a known ID replace the default, new IDs append.
func LoadCatalogue(path string) (Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, eris.Wrapf(err, "metrics: read catalogue %s", path)
	}
	var loaded Catalogue
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Catalogue{}, eris.Wrapf(err, "metrics: parse catalogue %s", path)
	}

	merged := DefaultCatalogue()
	for _, entry := range loaded.Metrics {
		replaced := false
		for i := range merged.Metrics {
			if merged.Metrics[i].ID == entry.ID {
				merged.Metrics[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Metrics = append(merged.Metrics, entry)
		}
	}
	return merged, nil
}

// Lookup returns the catalogue entry for a metric ID.
func (c Catalogue) Lookup(id string) (CatalogueEntry, bool) {
	for _, entry := range c.Metrics {
		if entry.ID == id {
			return entry, true
		}
	}
	return CatalogueEntry{}, false
}
