package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultTestsDir holds one test suite directory per module
	DefaultTestsDir = "tests"
	// DefaultUtilsDir holds one implementation directory per module and is added to PYTHONPATH
	DefaultUtilsDir = "utils"
	// DefaultRequirementsFile is the requirements file name looked up in both module directories
	DefaultRequirementsFile = "requirements.txt"
	// DefaultPython is the interpreter used to create environments
	DefaultPython = "python3"
	// DefaultReportDir is where per-module and aggregate reports are written
	DefaultReportDir = "reports"
	// DefaultReportFile is the report file name
	DefaultReportFile = "unit.xml"
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "test-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = "storage"
	// DefaultProcessors runs modules strictly one after another
	DefaultProcessors = 1
	// DefaultTimeout bounds a single module run, setup included
	DefaultTimeout = 30 * time.Minute
	// DefaultConfigFile is the optional project config file
	DefaultConfigFile = "mtr.yaml"
	// DefaultDatabasePrefix names per-worker test databases
	DefaultDatabasePrefix = "testing"
)

// DefaultPathsToIgnore are directory names under the utils root that are never modules
var DefaultPathsToIgnore = []string{
	"__pycache__",
	".git",
	".pytest_cache",
	"node_modules",
	"build",
	"dist",
}
