package domain

// FailureKind tells a failed assertion from an error raised by the test
type FailureKind string

const (
	KindFailure FailureKind = "failure"
	KindError   FailureKind = "error"
)

// TestFailure represents a failed test case
type TestFailure struct {
	Module    string      `json:"module"`
	TestName  string      `json:"test_name"`
	ClassName string      `json:"class_name"`
	FilePath  string      `json:"file_path"`
	Line      int         `json:"line"`
	Kind      FailureKind `json:"kind"`
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Details   string      `json:"details"`
	Resolved  bool        `json:"resolved,omitempty"` // Track if test case is marked as resolved
}
