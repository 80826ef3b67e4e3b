// Package pluginapi defines the stable surface plugin authors build against:
// registration hooks, read-only entity views, and rule evaluation primitives.
// Plugins depend on this package and pkg/datasetapi only; they never import
// core or domain packages directly.
package pluginapi

import "biodivcore/pkg/datasetapi"

// Registry receives the capabilities a plugin contributes during installation.
type Registry interface {
	// RegisterSchema attaches a JSON schema fragment describing the plugin's
	// attribute extensions for the named entity.
	RegisterSchema(entity string, schema map[string]any)
	// RegisterRule contributes a validation rule evaluated inside every
	// transaction of the host store.
	RegisterRule(rule Rule)
	// RegisterDatasetTemplate contributes a dataset template to the host
	// catalog. Registration fails on slug collisions.
	RegisterDatasetTemplate(template datasetapi.Template) error
}

// Plugin is implemented by every biodivcore plugin.
type Plugin interface {
	Name() string
	Version() string
	Register(Registry) error
}

// Version is the plugin API compatibility marker hosts and plugins agree on.
const Version = "v1"
