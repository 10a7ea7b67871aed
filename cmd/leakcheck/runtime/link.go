// Package runtime resolves the leak detector runtime for programs built
// by the leakcheck tool.
//
// Programs under test import the runtime themselves; this package makes
// that import resolve. When leakcheck runs from a development tree the
// overlay points the module at the local sources, otherwise the
// published module is used unchanged.
package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// RuntimePackagePath is the import path programs use to link the
// detector runtime.
const RuntimePackagePath = "github.com/kolkov/leakdetector/leak"

// modulePath is the module the overlay redirects during development.
const modulePath = "github.com/kolkov/leakdetector"

// findProjectRoot finds the root of a leakdetector development tree.
//
// It walks up from the working directory looking for the runtime
// sources (internal/leak/dispatch). A plain go.mod is not enough of a
// marker: that would match the user's own project.
func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		marker := filepath.Join(dir, "internal", "leak", "dispatch")
		if _, err := os.Stat(marker); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// Fall back to the executable's location: leakcheck may be run from
	// the user's project with the binary sitting in the dev tree.
	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		for _, candidate := range []string{exeDir, filepath.Dir(exeDir)} {
			marker := filepath.Join(candidate, "internal", "leak", "dispatch")
			if _, err := os.Stat(marker); err == nil {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("could not find leakdetector project root")
}

// findUserGoMod walks up from startDir looking for the go.mod of the
// project being checked. Empty string when none exists.
func findUserGoMod(startDir string) string {
	dir := startDir
	for {
		modPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(modPath); err == nil {
			return modPath
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// ModFileOverlay writes a go.mod overlay into tempDir that makes the
// detector runtime import resolve against a development tree. Replace
// directives from the user project's go.mod are carried over with
// relative paths made absolute, since the build no longer runs from
// that directory.
//
// Returns the overlay path for the -modfile flag, or "" when no
// development tree is present and the published module should be used.
func ModFileOverlay(tempDir, sourceDir string) (string, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return "", nil //nolint:nilerr // published-module mode, not a failure
	}

	var content strings.Builder
	fmt.Fprintf(&content, "module leakcheck-overlay\n\ngo 1.24\n\n")
	fmt.Fprintf(&content, "require %s v0.0.0\n\n", modulePath)
	fmt.Fprintf(&content, "replace %s => %s\n", modulePath, projectRoot)

	if sourceDir != "" {
		if userGoMod := findUserGoMod(sourceDir); userGoMod != "" {
			if directives := carriedReplaceDirectives(userGoMod); directives != "" {
				content.WriteString("\n")
				content.WriteString(directives)
			}
		}
	}

	overlayPath := filepath.Join(tempDir, "go.mod.overlay")
	if err := os.WriteFile(overlayPath, []byte(content.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to create go.mod overlay: %w", err)
	}
	return overlayPath, nil
}

// carriedReplaceDirectives extracts the replace directives from the
// user's go.mod, rewriting relative filesystem targets to absolute
// paths.
func carriedReplaceDirectives(goModPath string) string {
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return ""
	}
	modFile, err := modfile.Parse(goModPath, data, nil)
	if err != nil || len(modFile.Replace) == 0 {
		return ""
	}

	goModDir := filepath.Dir(goModPath)
	var out strings.Builder
	for _, rep := range modFile.Replace {
		newPath := rep.New.Path
		if rep.New.Version == "" && isLocalPath(newPath) && !filepath.IsAbs(newPath) {
			if abs, err := filepath.Abs(filepath.Join(goModDir, newPath)); err == nil {
				newPath = abs
			}
		}

		fmt.Fprintf(&out, "replace %s", rep.Old.Path)
		if rep.Old.Version != "" {
			fmt.Fprintf(&out, " %s", rep.Old.Version)
		}
		fmt.Fprintf(&out, " => %s", newPath)
		if rep.New.Version != "" {
			fmt.Fprintf(&out, " %s", rep.New.Version)
		}
		out.WriteString("\n")
	}
	return out.String()
}

// isLocalPath reports whether path names a filesystem location rather
// than a module.
func isLocalPath(path string) bool {
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		return true
	}
	if filepath.IsAbs(path) {
		return true
	}
	// Windows drive letter.
	if len(path) >= 2 && path[1] == ':' {
		return true
	}
	return false
}
