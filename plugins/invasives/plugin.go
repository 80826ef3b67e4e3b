// Package invasives implements the invasion monitoring plugin: a consistency
// rule for invasive records, a taxon attribute schema for invasion covariates,
// and dataset templates contrasting diversity between invaded and uninvaded
// plot groups.
package invasives

import (
	"biodivcore/pkg/pluginapi"
)

// Plugin implements the invasion monitoring module.
type Plugin struct{}

// New constructs an invasives plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "invasives" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register wires the invasion attribute schema, the origin consistency rule,
// and both dataset templates.
func (Plugin) Register(registry pluginapi.Registry) error {
	registry.RegisterSchema("taxon", map[string]any{
		"$id":  "biodivcore:invasives:taxon",
		"type": "object",
		"properties": map[string]any{
			"cover_class": map[string]any{
				"type":        "string",
				"enum":        []string{"<1%", "1-5%", "5-25%", "25-50%", "50-75%", ">75%"},
				"description": "Cover class of the invader where it occurs",
			},
			"invasion_front_distance_m": map[string]any{
				"type":        "number",
				"minimum":     0,
				"description": "Distance to the nearest mapped invasion front in metres",
			},
			"introduction_pathway": map[string]any{
				"type":        "string",
				"description": "Suspected introduction pathway",
			},
			"first_recorded_year": map[string]any{
				"type":        "integer",
				"minimum":     1700,
				"description": "Year the taxon was first recorded in the region",
			},
		},
	})

	registry.RegisterRule(originConsistencyRule{})

	if err := registry.RegisterDatasetTemplate(impactTemplate()); err != nil {
		return err
	}
	return registry.RegisterDatasetTemplate(rarefactionTemplate())
}
