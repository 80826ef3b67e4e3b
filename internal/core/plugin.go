package core

import (
	"fmt"
	"sort"

	"biodivcore/pkg/datasetapi"
	"biodivcore/pkg/pluginapi"
)

// PluginRegistry accumulates plugin contributions during registration. A
// single registry is shared by every plugin installed into a Service so
// dataset slug collisions are detected across plugins. It is the host-side
// implementation of pluginapi.Registry.
type PluginRegistry struct {
	plugin   string
	rules    []Rule
	schemas  map[string]map[string]any
	datasets map[string]DatasetTemplate

	contrib *pluginContribution
}

// pluginContribution tracks what one plugin registered during install so the
// service can wire its rules and roll back on failure.
type pluginContribution struct {
	rules    []Rule
	schemas  []string
	datasets []string
}

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{
		schemas:  make(map[string]map[string]any),
		datasets: make(map[string]DatasetTemplate),
	}
}

var _ pluginapi.Registry = (*PluginRegistry)(nil)

// RegisterRule adds an in-transaction rule contributed by the plugin.
func (r *PluginRegistry) RegisterRule(rule pluginapi.Rule) {
	if rule == nil {
		return
	}
	adapted := adaptPluginRule(rule)
	r.rules = append(r.rules, adapted)
	if r.contrib != nil {
		r.contrib.rules = append(r.contrib.rules, adapted)
	}
}

// RegisterSchema stores a JSON Schema fragment for an entity type.
func (r *PluginRegistry) RegisterSchema(entity string, schema map[string]any) {
	if entity == "" || schema == nil {
		return
	}
	cp := make(map[string]any, len(schema))
	for k, v := range schema {
		cp[k] = v
	}
	r.schemas[entity] = cp
	if r.contrib != nil {
		r.contrib.schemas = append(r.contrib.schemas, entity)
	}
}

// RegisterDatasetTemplate stores a dataset template manifest contributed by
// the plugin. The template is attributed to the plugin under install, if any.
func (r *PluginRegistry) RegisterDatasetTemplate(template datasetapi.Template) error {
	wrapped, err := newDatasetTemplateFromAPI(r.plugin, template)
	if err != nil {
		return err
	}
	slug := wrapped.slug()
	if _, exists := r.datasets[slug]; exists {
		return fmt.Errorf("dataset template %s already registered", slug)
	}
	r.datasets[slug] = wrapped
	if r.contrib != nil {
		r.contrib.datasets = append(r.contrib.datasets, slug)
	}
	return nil
}

// Rules returns a copy of registered rules.
func (r *PluginRegistry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Schemas returns a copy of registered schema fragments keyed by entity type.
func (r *PluginRegistry) Schemas() map[string]map[string]any {
	out := make(map[string]map[string]any, len(r.schemas))
	for entity, schema := range r.schemas {
		cp := make(map[string]any, len(schema))
		for k, v := range schema {
			cp[k] = v
		}
		out[entity] = cp
	}
	return out
}

// DatasetTemplates returns registered dataset templates sorted by key and version.
func (r *PluginRegistry) DatasetTemplates() []DatasetTemplate {
	out := make([]DatasetTemplate, 0, len(r.datasets))
	for _, template := range r.datasets {
		copy := template
		copy.Parameters = cloneParameters(template.Parameters)
		copy.Columns = cloneColumns(template.Columns)
		copy.Metadata = cloneMetadata(template.Metadata)
		copy.OutputFormats = cloneFormats(template.OutputFormats)
		out = append(out, copy)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key == out[j].Key {
			return out[i].Version < out[j].Version
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (r *PluginRegistry) dataset(slug string) (DatasetTemplate, bool) {
	template, ok := r.datasets[slug]
	return template, ok
}

// beginInstall scopes subsequent registrations to the named plugin.
func (r *PluginRegistry) beginInstall(plugin string) {
	r.plugin = plugin
	r.contrib = &pluginContribution{}
}

// finishInstall ends the install scope and returns what the plugin contributed.
func (r *PluginRegistry) finishInstall() *pluginContribution {
	contrib := r.contrib
	r.plugin = ""
	r.contrib = nil
	if contrib == nil {
		contrib = &pluginContribution{}
	}
	return contrib
}

// rollbackInstall removes a failed plugin's contributions from the registry.
func (r *PluginRegistry) rollbackInstall(contrib *pluginContribution) {
	if contrib == nil {
		return
	}
	if n := len(contrib.rules); n > 0 && n <= len(r.rules) {
		r.rules = r.rules[:len(r.rules)-n]
	}
	for _, entity := range contrib.schemas {
		delete(r.schemas, entity)
	}
	for _, slug := range contrib.datasets {
		delete(r.datasets, slug)
	}
}

// PluginMetadata stores metadata describing an installed plugin.
type PluginMetadata struct {
	Name     string
	Version  string
	Schemas  map[string]map[string]any
	Datasets []DatasetTemplateDescriptor
}
