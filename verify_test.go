// Package verify enforces project-level structural invariants.
//
// These tests catch categories of bugs unit tests cannot:
//   - Dead packages that compile and pass tests but are never called
//   - Provider adapters that drop their interface compliance assertion,
//     silently drifting from the contract they are meant to satisfy
package earthdata_test

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

const modulePath = "github.com/polarpath/earthdata"

// discoverPackages walks pkgDir and returns the import paths of all
// packages containing non-test Go source.
func discoverPackages(pkgDir, projectRoot string) (map[string]bool, error) {
	allPackages := map[string]bool{}
	err := filepath.Walk(pkgDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			return nil
		}
		hasGo, dirErr := dirHasGoSource(path)
		if dirErr != nil {
			return fmt.Errorf("checking directory %s: %w", path, dirErr)
		}
		if hasGo {
			rel, relErr := filepath.Rel(projectRoot, path)
			if relErr != nil {
				return fmt.Errorf("computing relative path for %s: %w", path, relErr)
			}
			allPackages[modulePath+"/"+filepath.ToSlash(rel)] = false
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking package directory: %w", err)
	}
	return allPackages, nil
}

// dirHasGoSource reports whether dir contains at least one non-test Go file.
func dirHasGoSource(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") && !strings.HasSuffix(e.Name(), "_test.go") {
			return true, nil
		}
	}
	return false, nil
}

// scanImports walks the given directories and marks imported packages as true.
func scanImports(scanDirs []string, importRe *regexp.Regexp, allPackages map[string]bool) error {
	for _, dir := range scanDirs {
		if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
			continue
		}
		walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, fErr error) error {
			if fErr != nil {
				return fErr
			}
			if info.IsDir() || !strings.HasSuffix(info.Name(), ".go") || strings.HasSuffix(info.Name(), "_test.go") {
				return nil
			}
			content, readErr := os.ReadFile(path) //nolint:gosec // test reads source files
			if readErr != nil {
				return fmt.Errorf("reading file %s: %w", path, readErr)
			}
			for _, match := range importRe.FindAllStringSubmatch(string(content), -1) {
				if _, exists := allPackages[match[1]]; exists {
					allPackages[match[1]] = true
				}
			}
			return nil
		})
		if walkErr != nil {
			return fmt.Errorf("scanning imports in %s: %w", dir, walkErr)
		}
	}
	return nil
}

// TestNoDeadPackages verifies that every Go package under pkg/ is
// imported by at least one non-test file in the project (pkg/ or cmd/).
//
// A package that exists but is never imported is dead code — it
// compiles, passes its own unit tests, but never executes in the
// running workflow.
func TestNoDeadPackages(t *testing.T) {
	projectRoot, err := filepath.Abs(".")
	require.NoError(t, err)

	allPackages, err := discoverPackages(filepath.Join(projectRoot, "pkg"), projectRoot)
	require.NoError(t, err)
	require.NotEmpty(t, allPackages)

	importRe := regexp.MustCompile(`"(` + regexp.QuoteMeta(modulePath) + `/[^"]+)"`)
	scanDirs := []string{
		filepath.Join(projectRoot, "pkg"),
		filepath.Join(projectRoot, "cmd"),
	}

	require.NoError(t, scanImports(scanDirs, importRe, allPackages))

	for pkg, imported := range allPackages {
		assert.True(t, imported,
			"package %q contains Go source files but is never imported by any non-test code. "+
				"Either wire it into the platform or delete it.", pkg)
	}
}

// TestAdaptersAssertCompliance verifies that every provider adapter
// package declares a `var _ Interface = (*Type)(nil)` compliance
// assertion. Without it an adapter can drift from the provider contract
// and the break only surfaces at the call site.
func TestAdaptersAssertCompliance(t *testing.T) {
	projectRoot, err := filepath.Abs(".")
	require.NoError(t, err)

	adapterDirs := []string{
		filepath.Join(projectRoot, "pkg", "catalog", "cmr"),
		filepath.Join(projectRoot, "pkg", "dataset", "nc"),
		filepath.Join(projectRoot, "pkg", "store", "s3"),
		filepath.Join(projectRoot, "pkg", "store", "https"),
	}

	implRe := regexp.MustCompile(`var\s+_\s+\S+\s*=\s*\(\*\w+\)\(nil\)`)

	for _, dir := range adapterDirs {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err, "adapter directory %s", dir)

		found := false
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") || strings.HasSuffix(e.Name(), "_test.go") {
				continue
			}
			content, readErr := os.ReadFile(filepath.Join(dir, e.Name())) //nolint:gosec // test reads source files
			require.NoError(t, readErr)
			if implRe.Match(content) {
				found = true
				break
			}
		}
		assert.True(t, found, "adapter package %s has no interface compliance assertion", dir)
	}
}
