package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mtr/internal/config"
	"mtr/internal/domain"
)

var (
	// ErrInvalidModuleName is returned for identifiers that are not a plain directory name
	ErrInvalidModuleName = errors.New("invalid module name")
	// ErrModuleNotFound is returned when a module has no directory under the tests root
	ErrModuleNotFound = errors.New("module not found")
)

// Scanner finds modules under the utils root and resolves their layout
type Scanner struct {
	config       *config.Config
	requirements *Requirements
	skipDirs     map[string]bool
}

// NewScanner creates a new Scanner with the given directories to skip
func NewScanner(cfg *config.Config, requirements *Requirements) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range cfg.PathsToIgnore {
		skipMap[dir] = true
	}
	return &Scanner{config: cfg, requirements: requirements, skipDirs: skipMap}
}

// Scan lists the module identifiers found as immediate subdirectories of root,
// in directory read order.
func (s *Scanner) Scan(root string) ([]string, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("utils path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("utils path is not a directory: %s", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read utils path: %w", err)
	}

	var modules []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		// Skip hidden directories (starting with .)
		if strings.HasPrefix(name, ".") {
			continue
		}
		if s.skipDirs[name] || strings.HasSuffix(name, ".egg-info") {
			continue
		}
		modules = append(modules, name)
	}

	return modules, nil
}

// ScanModules lists the modules under the configured utils root
func (s *Scanner) ScanModules() ([]string, error) {
	return s.Scan(s.config.GetUtilsRoot())
}

// ValidateName rejects identifiers that would escape the module roots
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalidModuleName)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidModuleName, name)
	}
	return nil
}

// Resolve builds the Module for an identifier, reading both requirement files.
// A module without a tests directory resolves to ErrModuleNotFound.
func (s *Scanner) Resolve(name string) (domain.Module, error) {
	if err := ValidateName(name); err != nil {
		return domain.Module{}, err
	}

	module := domain.Module{
		Name:      name,
		TestsPath: s.config.GetModuleTestsPath(name),
		UtilsPath: s.config.GetModuleUtilsPath(name),
	}

	info, err := os.Stat(module.TestsPath)
	if err != nil || !info.IsDir() {
		return module, fmt.Errorf("%w: no test directory %s", ErrModuleNotFound, module.TestsPath)
	}

	strict := s.config.StrictReqs
	module.TestRequirements, err = s.requirements.Read(s.config.GetTestRequirementsPath(name), strict)
	if err != nil {
		return module, err
	}
	module.UtilsRequirements, err = s.requirements.Read(s.config.GetUtilsRequirementsPath(name), strict)
	if err != nil {
		return module, err
	}

	if len(module.TestRequirements) > 0 {
		module.RequirementFiles = append(module.RequirementFiles, s.config.GetTestRequirementsPath(name))
	}
	if len(module.UtilsRequirements) > 0 {
		module.RequirementFiles = append(module.RequirementFiles, s.config.GetUtilsRequirementsPath(name))
	}

	return module, nil
}
