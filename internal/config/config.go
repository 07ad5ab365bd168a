package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Project layout
	ProjectPath      string `yaml:"project"`
	TestsDir         string `yaml:"tests_dir"`
	UtilsDir         string `yaml:"utils_dir"`
	RequirementsFile string `yaml:"requirements_file"`

	// Environment settings
	Python     string   `yaml:"python"`
	EnvsDir    string   `yaml:"envs_dir"`
	UpgradePip bool     `yaml:"upgrade_pip"`
	KeepEnv    bool     `yaml:"keep_env"`
	StrictReqs bool     `yaml:"strict_requirements"`
	PytestArgs []string `yaml:"pytest_args"`

	// Report settings
	ReportDir  string `yaml:"report_dir"`
	ReportFile string `yaml:"report_file"`

	// Output settings
	OutputJSONFile string `yaml:"output_json_file"`
	OutputJSONDir  string `yaml:"output_json_dir"`

	// Execution settings
	Processors int           `yaml:"processors"`
	Timeout    time.Duration `yaml:"timeout"`

	// Per-worker databases
	Databases      bool   `yaml:"databases"`
	DatabasePrefix string `yaml:"database_prefix"`

	// Directory names under the utils root that are never modules
	PathsToIgnore []string `yaml:"ignore"`

	// Command flags
	Flags Flags `yaml:"-"`
}

// Flags holds command-line flags
type Flags struct {
	Processors         int
	Timeout            time.Duration
	NameFilter         string
	All                bool
	OnlyFailed         bool
	KeepEnv            bool
	StrictRequirements bool
	Python             string
	Databases          bool
	Verbose            bool
	OpenFailures       bool
	Requirements       bool
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:      DefaultProjectPath,
		TestsDir:         DefaultTestsDir,
		UtilsDir:         DefaultUtilsDir,
		RequirementsFile: DefaultRequirementsFile,
		Python:           DefaultPython,
		EnvsDir:          os.TempDir(),
		UpgradePip:       true,
		ReportDir:        DefaultReportDir,
		ReportFile:       DefaultReportFile,
		OutputJSONFile:   DefaultOutputJSONFile,
		OutputJSONDir:    DefaultOutputJSONDir,
		Processors:       DefaultProcessors,
		Timeout:          DefaultTimeout,
		DatabasePrefix:   DefaultDatabasePrefix,
		Flags:            Flags{Processors: DefaultProcessors},
	}
	// Copy default paths to ignore
	cfg.PathsToIgnore = make([]string, len(DefaultPathsToIgnore))
	copy(cfg.PathsToIgnore, DefaultPathsToIgnore)
	return cfg
}

// Load builds a config for the given project: defaults, then mtr.yaml, then the
// project's .env and MTR_* variables, then flags.
func Load(projectPath string, flags Flags) (*Config, error) {
	cfg := New()
	if projectPath != "" {
		cfg.ProjectPath = projectPath
	}
	if err := cfg.LoadFile(filepath.Join(cfg.ProjectPath, DefaultConfigFile)); err != nil {
		return nil, err
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyFlags(flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges a YAML config file into c. A missing file is not an error.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads the project's .env file (if any) and applies MTR_* overrides.
func (c *Config) LoadEnv() error {
	envPath := filepath.Join(c.ProjectPath, ".env")
	if err := godotenv.Load(envPath); err != nil {
		// .env file might not exist, that's okay - use environment variables
		_ = err
	}

	if v := os.Getenv("MTR_PYTHON"); v != "" {
		c.Python = v
	}
	if v := os.Getenv("MTR_ENVS_DIR"); v != "" {
		c.EnvsDir = v
	}
	if v := os.Getenv("MTR_REPORT_DIR"); v != "" {
		c.ReportDir = v
	}
	if v := os.Getenv("MTR_PROCESSORS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MTR_PROCESSORS %q: %w", v, err)
		}
		c.Processors = n
	}
	if v := os.Getenv("MTR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MTR_TIMEOUT %q: %w", v, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("DB_DATABASE_PREFIX"); v != "" {
		c.DatabasePrefix = v
	}
	return nil
}

// ApplyFlags overrides config values with the flags that were set
func (c *Config) ApplyFlags(flags Flags) {
	c.Flags = flags
	if flags.Processors > 0 {
		c.Processors = flags.Processors
	}
	if flags.Timeout > 0 {
		c.Timeout = flags.Timeout
	}
	if flags.Python != "" {
		c.Python = flags.Python
	}
	if flags.KeepEnv {
		c.KeepEnv = true
	}
	if flags.StrictRequirements {
		c.StrictReqs = true
	}
	if flags.Databases {
		c.Databases = true
	}
}

// Validate rejects configurations that cannot drive a run
func (c *Config) Validate() error {
	var problems []string
	if c.Processors <= 0 {
		problems = append(problems, "processors must be positive")
	}
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.Python == "" {
		problems = append(problems, "python interpreter is empty")
	}
	if c.TestsDir == "" || c.UtilsDir == "" {
		problems = append(problems, "tests and utils directories must be set")
	}
	if c.ReportFile == "" {
		problems = append(problems, "report file name is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetTestsRoot returns the directory holding one test suite per module
func (c *Config) GetTestsRoot() string {
	return c.resolve(c.TestsDir)
}

// GetUtilsRoot returns the absolute utils root, which is also put on PYTHONPATH
func (c *Config) GetUtilsRoot() string {
	p := c.resolve(c.UtilsDir)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetModuleTestsPath returns tests/<module>
func (c *Config) GetModuleTestsPath(module string) string {
	return filepath.Join(c.GetTestsRoot(), module)
}

// GetModuleUtilsPath returns utils/<module>
func (c *Config) GetModuleUtilsPath(module string) string {
	return filepath.Join(c.GetUtilsRoot(), module)
}

// GetTestRequirementsPath returns tests/<module>/<requirements file>
func (c *Config) GetTestRequirementsPath(module string) string {
	return filepath.Join(c.GetModuleTestsPath(module), c.RequirementsFile)
}

// GetUtilsRequirementsPath returns utils/<module>/<requirements file>
func (c *Config) GetUtilsRequirementsPath(module string) string {
	return filepath.Join(c.GetModuleUtilsPath(module), c.RequirementsFile)
}

// GetReportPath returns the report path of one module. Every module has its own
// path so parallel workers never write the same file.
func (c *Config) GetReportPath(module string) string {
	return c.absolute(filepath.Join(c.resolve(c.ReportDir), module, c.ReportFile))
}

// GetAggregateReportPath returns the path of the merged report of a run
func (c *Config) GetAggregateReportPath() string {
	return c.absolute(filepath.Join(c.resolve(c.ReportDir), c.ReportFile))
}

// GetOutputPath returns the full path to the output JSON file (under project so run and failures use the same file).
func (c *Config) GetOutputPath() string {
	return c.absolute(filepath.Join(c.ProjectPath, c.OutputJSONDir, c.OutputJSONFile))
}

// GetDatabaseName returns the database name for a worker
func (c *Config) GetDatabaseName(workerID int) string {
	prefix := c.DatabasePrefix
	if prefix == "" {
		prefix = DefaultDatabasePrefix
	}
	return fmt.Sprintf("%s_%d", prefix, workerID)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectPath, p)
}

func (c *Config) absolute(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
