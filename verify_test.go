// Package trip_planner_test enforces project-level structural rules that
// package unit tests cannot see:
//   - every package under pkg/ and internal/ is reachable from non-test code
//   - every interface with a noop implementation also has a real one
//   - every package with source files ships tests
//
// The migration table check lives in pkg/database/migrate because it reads
// the embedded migration FS.
package trip_planner_test

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/txn2/trip-planner"

// packageDirs lists the directories whose packages are checked.
var packageDirs = []string{"pkg", "internal"}

// discoverPackages walks dir and returns the import paths of all packages
// that contain non-test Go source files, mapped to their directory.
func discoverPackages(dir, projectRoot string) (map[string]string, error) {
	packages := map[string]string{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			return nil
		}
		hasGo, dirErr := dirHasFile(path, isSourceFile)
		if dirErr != nil {
			return dirErr
		}
		if hasGo {
			rel, relErr := filepath.Rel(projectRoot, path)
			if relErr != nil {
				return fmt.Errorf("computing relative path for %s: %w", path, relErr)
			}
			packages[modulePath+"/"+filepath.ToSlash(rel)] = path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return packages, nil
}

func isSourceFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

func isTestFile(name string) bool {
	return strings.HasSuffix(name, "_test.go")
}

// dirHasFile reports whether dir directly contains a file matching match.
func dirHasFile(dir string, match func(string) bool) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && match(e.Name()) {
			return true, nil
		}
	}
	return false, nil
}

// walkSources calls fn with the content of every non-test Go file under dirs.
func walkSources(dirs []string, fn func(path, content string)) error {
	for _, dir := range dirs {
		if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
			continue
		}
		err := filepath.Walk(dir, func(path string, info os.FileInfo, fErr error) error {
			if fErr != nil {
				return fErr
			}
			if info.IsDir() || !isSourceFile(info.Name()) {
				return nil
			}
			content, readErr := os.ReadFile(path) //nolint:gosec // test reads source files
			if readErr != nil {
				return fmt.Errorf("reading file %s: %w", path, readErr)
			}
			fn(path, string(content))
			return nil
		})
		if err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
	}
	return nil
}

func allPackages(t *testing.T, projectRoot string) map[string]string {
	t.Helper()
	packages := map[string]string{}
	for _, d := range packageDirs {
		found, err := discoverPackages(filepath.Join(projectRoot, d), projectRoot)
		require.NoError(t, err)
		for k, v := range found {
			packages[k] = v
		}
	}
	require.NotEmpty(t, packages)
	return packages
}

// TestNoDeadPackages verifies that every package under pkg/ and internal/ is
// imported by at least one non-test file in the project. A package nobody
// imports compiles and passes its own tests but never runs in the service.
func TestNoDeadPackages(t *testing.T) {
	projectRoot, err := filepath.Abs(".")
	require.NoError(t, err)

	packages := allPackages(t, projectRoot)
	imported := make(map[string]bool, len(packages))

	importRe := regexp.MustCompile(`"(` + regexp.QuoteMeta(modulePath) + `/[^"]+)"`)
	scanDirs := []string{
		filepath.Join(projectRoot, "pkg"),
		filepath.Join(projectRoot, "cmd"),
		filepath.Join(projectRoot, "internal"),
	}
	err = walkSources(scanDirs, func(_, content string) {
		for _, match := range importRe.FindAllStringSubmatch(content, -1) {
			imported[match[1]] = true
		}
	})
	require.NoError(t, err)

	for pkg := range packages {
		assert.True(t, imported[pkg],
			"package %q is never imported by non-test code; wire it into the platform or delete it", pkg)
	}
}

// TestPackagesHaveTests verifies that every package with source files also
// has at least one test file. Generated API docs are exempt.
func TestPackagesHaveTests(t *testing.T) {
	projectRoot, err := filepath.Abs(".")
	require.NoError(t, err)

	exempt := map[string]bool{
		modulePath + "/internal/apidocs": true,
	}

	for pkg, dir := range allPackages(t, projectRoot) {
		if exempt[pkg] {
			continue
		}
		hasTests, err := dirHasFile(dir, isTestFile)
		require.NoError(t, err)
		assert.True(t, hasTests, "package %q has no tests", pkg)
	}
}

// TestNoopOnlyInterfaces verifies that every interface with a noop
// implementation also has a real one. Compliance is detected from
// `var _ Iface = ...` assertions, in single or block form.
func TestNoopOnlyInterfaces(t *testing.T) {
	projectRoot, err := filepath.Abs(".")
	require.NoError(t, err)

	implRe := regexp.MustCompile(`(?m)^\s*(?:var\s+)?_\s+([\w.]+)\s*=\s*\(?\*?(\w+)\)?(?:\(nil\)|\{\})`)

	byInterface := map[string][]string{}
	err = walkSources([]string{filepath.Join(projectRoot, "pkg")}, func(_, content string) {
		for _, match := range implRe.FindAllStringSubmatch(content, -1) {
			iface := match[1]
			if i := strings.LastIndex(iface, "."); i >= 0 {
				iface = iface[i+1:]
			}
			byInterface[iface] = append(byInterface[iface], match[2])
		}
	})
	require.NoError(t, err)
	require.NotEmpty(t, byInterface, "should find interface compliance assertions in pkg/")

	for iface, types := range byInterface {
		hasNoop, hasReal := false, false
		for _, name := range types {
			if strings.Contains(strings.ToLower(name), "noop") {
				hasNoop = true
			} else {
				hasReal = true
			}
		}
		if hasNoop {
			assert.True(t, hasReal,
				"interface %q has only noop implementation(s) %v; implement the real behavior or remove the feature",
				iface, types)
		}
	}
}
