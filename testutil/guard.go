// Package testutil provides reusable testing helpers for enforcing the import
// layering of the repository: the domain model stays dependency free, the
// cascade engine stays free of I/O, and infra backends are only reached
// through their facade packages.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// Module is the import path of this module.
const Module = "tacticsdb"

// AssertNoDirectImports scans all non-test .go files in dir (typically "." from within the package)
// and fails if any import path satisfies the forbidden predicate. It does not follow build tags.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfViolations(t, "forbidden direct imports detected", reason, viols)
}

// Rule forbids packages under From from importing anything matched by
// Forbidden. Packages under one of the Allowed prefixes are exempt.
type Rule struct {
	From      string
	Allowed   []string
	Forbidden func(importPath string) bool
	Reason    string
}

// AssertLayering loads pattern (including test variants when tests is set) and
// fails for every package import that breaks one of rules.
func AssertLayering(t testing.TB, pattern string, tests bool, rules ...Rule) {
	t.Helper()
	graph, err := loadImports(pattern, tests)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	for _, r := range rules {
		failIfViolations(t, "layering violated", r.Reason, layeringViolations(graph, r))
	}
}

// InternalImportForbidden returns a predicate matching any import path containing /internal/.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// ThirdPartyImportForbidden matches imports outside the standard library and this module.
func ThirdPartyImportForbidden(path string) bool {
	if path == Module || strings.HasPrefix(path, Module+"/") {
		return false
	}
	first, _, _ := strings.Cut(path, "/")
	return strings.Contains(first, ".")
}

// PrefixForbidden returns a predicate matching each prefix and any package below it.
func PrefixForbidden(prefixes ...string) func(string) bool {
	return func(path string) bool {
		for _, p := range prefixes {
			if underPrefix(path, p) {
				return true
			}
		}
		return false
	}
}

// AnyForbidden matches when any of preds does.
func AnyForbidden(preds ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, p := range preds {
			if p(path) {
				return true
			}
		}
		return false
	}
}

func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

var loadImports = func(pattern string, tests bool) (map[string][]string, error) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: tests}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, err
	}
	graph := make(map[string][]string, len(pkgs))
	for _, pkg := range pkgs {
		for ip := range pkg.Imports {
			graph[pkg.PkgPath] = append(graph[pkg.PkgPath], ip)
		}
	}
	return graph, nil
}

func layeringViolations(graph map[string][]string, r Rule) []string {
	seen := make(map[string]struct{})
	for pkg, imports := range graph {
		if !underPrefix(pkg, r.From) {
			continue
		}
		exempt := false
		for _, a := range r.Allowed {
			if underPrefix(pkg, a) {
				exempt = true
				break
			}
		}
		if exempt {
			continue
		}
		for _, ip := range imports {
			if r.Forbidden(ip) {
				seen[pkg+": "+ip] = struct{}{}
			}
		}
	}
	viols := make([]string, 0, len(seen))
	for v := range seen {
		viols = append(viols, v)
	}
	sort.Strings(viols)
	return viols
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		fileAst, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range fileAst.Imports {
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

func failIfViolations(t fatalLogger, what, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("%s (%s):\n%s", what, reason, strings.Join(viols, "\n"))
	}
}
