package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"mtr/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func newProject(t *testing.T) (*config.Config, string) {
	t.Helper()
	tmpDir := t.TempDir()

	dirs := []string{
		"utils/alpha",
		"utils/beta",
		"utils/__pycache__",
		"utils/.hidden",
		"utils/dkulib.egg-info",
		"tests/alpha",
		"tests/beta",
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(tmpDir, dir), 0755); err != nil {
			t.Fatalf("failed to create dir %s: %v", dir, err)
		}
	}
	writeFile(t, filepath.Join(tmpDir, "utils", "setup.py"), "")

	cfg := config.New()
	cfg.ProjectPath = tmpDir
	return cfg, tmpDir
}

func TestScanner_Scan(t *testing.T) {
	cfg, _ := newProject(t)
	scanner := NewScanner(cfg, NewRequirements())

	t.Run("lists immediate module directories", func(t *testing.T) {
		results, err := scanner.ScanModules()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(results) != 2 || results[0] != "alpha" || results[1] != "beta" {
			t.Errorf("expected [alpha beta], got %v", results)
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		_, err := scanner.Scan("/non/existent/path")
		if err == nil {
			t.Error("expected error for non-existent directory")
		}
	})

	t.Run("returns error for file instead of directory", func(t *testing.T) {
		_, err := scanner.Scan(filepath.Join(cfg.GetUtilsRoot(), "setup.py"))
		if err == nil {
			t.Error("expected error for file path")
		}
	})
}

func TestScanner_Resolve(t *testing.T) {
	cfg, root := newProject(t)
	writeFile(t, filepath.Join(root, "tests/alpha/requirements.txt"), "pytest\nallure-pytest==2.8.6\n")
	writeFile(t, filepath.Join(root, "utils/alpha/requirements.txt"), "pandas>=1.0\n")
	scanner := NewScanner(cfg, NewRequirements())

	t.Run("reads both requirement files", func(t *testing.T) {
		module, err := scanner.Resolve("alpha")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(module.TestRequirements) != 2 || module.TestRequirements[1] != "allure-pytest==2.8.6" {
			t.Errorf("unexpected test requirements %v", module.TestRequirements)
		}
		if len(module.UtilsRequirements) != 1 || module.UtilsRequirements[0] != "pandas>=1.0" {
			t.Errorf("unexpected utils requirements %v", module.UtilsRequirements)
		}
		if module.TestsPath != filepath.Join(root, "tests", "alpha") {
			t.Errorf("unexpected tests path %s", module.TestsPath)
		}
		expectedFiles := []string{cfg.GetTestRequirementsPath("alpha"), cfg.GetUtilsRequirementsPath("alpha")}
		if !reflect.DeepEqual(module.RequirementFiles, expectedFiles) {
			t.Errorf("expected requirement files %v, got %v", expectedFiles, module.RequirementFiles)
		}
	})

	t.Run("missing requirement files are empty", func(t *testing.T) {
		module, err := scanner.Resolve("beta")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(module.TestRequirements) != 0 || len(module.UtilsRequirements) != 0 {
			t.Errorf("expected no requirements, got %v %v", module.TestRequirements, module.UtilsRequirements)
		}
		if len(module.RequirementFiles) != 0 {
			t.Errorf("expected no requirement files, got %v", module.RequirementFiles)
		}
	})

	t.Run("strict mode rejects missing requirement files", func(t *testing.T) {
		cfg.StrictReqs = true
		defer func() { cfg.StrictReqs = false }()

		_, err := scanner.Resolve("beta")
		if !errors.Is(err, ErrRequirementsMissing) {
			t.Errorf("expected ErrRequirementsMissing, got %v", err)
		}
	})

	t.Run("unknown module", func(t *testing.T) {
		_, err := scanner.Resolve("omega")
		if !errors.Is(err, ErrModuleNotFound) {
			t.Errorf("expected ErrModuleNotFound, got %v", err)
		}
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", " ", "..", "a/b", `a\b`} {
			if _, err := scanner.Resolve(name); !errors.Is(err, ErrInvalidModuleName) {
				t.Errorf("expected ErrInvalidModuleName for %q, got %v", name, err)
			}
		}
	})
}
