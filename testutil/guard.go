// Package testutil provides shared helpers for enforcing architectural and
// API boundary invariants in tests across the repository.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoTransitiveDependency shells out to `go list -deps` with the provided
// pattern (e.g. ./... or .) and fails the test when any dependency path
// satisfies the forbidden predicate. The reason string is appended to the
// failure message.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	viols, out, err := transitiveViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("go list failed: %v\n%s", err, string(out))
	}
	reportViolations(t, "forbidden transitive dependency detected", reason, viols)
}

// AssertNoDirectImports parses every non-test .go file in dir (typically "."
// from within the package under test) and fails when any import path
// satisfies the forbidden predicate. Build tags are not evaluated.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	reportViolations(t, "forbidden direct imports detected", reason, viols)
}

// DomainImportForbidden matches import paths that resolve to the domain
// package, including module-versioned forms.
func DomainImportForbidden(path string) bool {
	return strings.HasSuffix(path, "/pkg/domain") || strings.Contains(path, "/pkg/domain@")
}

// InternalImportForbidden matches any import path under an internal tree.
// Suitable for direct-import scans; for transitive checks prefer
// ModuleInternalImportForbidden, since third-party dependencies legitimately
// reach their own internal packages.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/") || strings.HasSuffix(path, "/internal")
}

// ModuleInternalImportForbidden matches import paths under this module's own
// internal tree only, leaving dependency-internal packages (e.g. gonum's
// internal assembly kernels) alone.
func ModuleInternalImportForbidden(path string) bool {
	return path == "biodivcore/internal" || strings.HasPrefix(path, "biodivcore/internal/")
}

// PersistenceImportForbidden matches import paths of concrete persistence
// backends. Packages outside the sanctioned wiring layer must depend on the
// domain.PersistentStore contract instead.
func PersistenceImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/infra/persistence/")
}

var goListDeps = func(pattern string) ([]byte, error) {
	cmd := exec.Command("go", "list", "-deps", pattern)
	return cmd.CombinedOutput()
}

func transitiveViolations(pattern string, forbidden func(path string) bool) ([]string, []byte, error) {
	out, err := goListDeps(pattern)
	if err != nil {
		return nil, out, err
	}
	var viols []string
	for _, line := range strings.Split(string(out), "\n") {
		dep := strings.TrimSpace(line)
		if dep == "" {
			continue
		}
		if forbidden(dep) {
			viols = append(viols, dep)
		}
	}
	return viols, out, nil
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		parsed, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range parsed.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func reportViolations(t fatalLogger, kind, reason string, viols []string) {
	if len(viols) == 0 {
		return
	}
	t.Fatalf("%s (%s):\n%s", kind, reason, strings.Join(viols, "\n"))
}
