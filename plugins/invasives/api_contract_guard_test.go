package invasives

import (
	"testing"

	"biodivcore/testutil"
)

// TestAPIBoundaryGuards enforces that the plugin builds against the published
// plugin and dataset contracts only. Domain structs reach plugins through the
// datasetapi aliases, so the domain package must never be imported directly,
// and nothing under internal may leak in even transitively.
func TestAPIBoundaryGuards(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", func(ip string) bool {
		return testutil.InternalImportForbidden(ip) || testutil.DomainImportForbidden(ip)
	}, "plugins build against pkg/pluginapi, pkg/datasetapi, and pkg/measure only")

	testutil.AssertNoTransitiveDependency(t, ".", testutil.ModuleInternalImportForbidden,
		"transitive dependency on this module's internal packages disallowed")
}
