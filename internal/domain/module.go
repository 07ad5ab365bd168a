package domain

// Module is a unit of implementation code paired with its own test suite and
// dependency lists
type Module struct {
	Name              string   // Identifier, the directory name under both roots
	TestsPath         string   // tests/<name>
	UtilsPath         string   // utils/<name>
	TestRequirements  []string // Specifiers needed only to run the tests
	UtilsRequirements []string // Specifiers needed by the implementation
	RequirementFiles  []string // Non-empty requirements files, tests first, handed to pip as -r
}
