// Package testutil hosts helper utilities for dataset adapter tests.
// It intentionally encapsulates access to runtime plugins so the production
// adapter package never depends on plugin implementations directly.
package testutil

import (
	"biodivcore/internal/core"
	"biodivcore/plugins/invasives"
)

// InstallInvasivesPlugin installs the invasion monitoring plugin and returns
// its metadata. Tests rely on this helper to access dataset templates without
// importing runtime plugin packages, preserving the adapter-layer boundary.
func InstallInvasivesPlugin(svc *core.Service) (core.PluginMetadata, error) {
	return svc.InstallPlugin(invasives.New())
}
