package discovery

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRequirementsMissing is returned in strict mode when a requirements file does not exist
var ErrRequirementsMissing = errors.New("requirements file missing")

// Requirements reads pip requirements files
type Requirements struct{}

// NewRequirements creates a new Requirements reader
func NewRequirements() *Requirements {
	return &Requirements{}
}

// Read parses a requirements file into its ordered entries for display and for
// the strict missing-file check. Continued lines are joined and option lines
// such as "-c constraints.txt" are kept verbatim. pip itself reads the file.
// A missing file yields no entries unless strict is set.
func (r *Requirements) Read(path string, strict bool) ([]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if strict {
			return nil, fmt.Errorf("%w: %s", ErrRequirementsMissing, path)
		}
		return nil, nil
	}
	return r.read(path, map[string]bool{})
}

func (r *Requirements) read(path string, seen map[string]bool) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if seen[abs] {
		return nil, fmt.Errorf("requirements include cycle at %s", path)
	}
	seen[abs] = true
	defer delete(seen, abs)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading requirements %s: %w", path, err)
	}
	defer file.Close()

	var specs []string
	var pending string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		// A trailing backslash continues the requirement on the next line
		if strings.HasSuffix(raw, "\\") {
			pending += strings.TrimSpace(strings.TrimSuffix(raw, "\\")) + " "
			continue
		}
		line := stripComment(pending + raw)
		pending = ""
		if line == "" {
			continue
		}

		// Nested requirement files: "-r other.txt" / "--requirement other.txt"
		if include, ok := includeTarget(line); ok {
			if !filepath.IsAbs(include) {
				include = filepath.Join(filepath.Dir(path), include)
			}
			nested, err := r.read(include, seen)
			if err != nil {
				return nil, err
			}
			specs = append(specs, nested...)
			continue
		}

		specs = append(specs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading requirements %s: %w", path, err)
	}
	if line := stripComment(pending); line != "" {
		specs = append(specs, line)
	}

	return specs, nil
}

// stripComment drops "#" comments. pip only treats "#" as a comment at the start
// of a line or after whitespace, so URL fragments survive.
func stripComment(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return ""
	}
	if i := strings.Index(line, " #"); i >= 0 {
		line = line[:i]
	}
	if i := strings.Index(line, "\t#"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

func includeTarget(line string) (string, bool) {
	for _, prefix := range []string{"-r ", "--requirement ", "--requirement="} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	if strings.HasPrefix(line, "-r") && len(line) > 2 {
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}

// MergeRequirements concatenates the test and implementation specifier lists,
// dropping exact duplicates and keeping first occurrence order.
func MergeRequirements(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, list := range lists {
		for _, req := range list {
			if seen[req] {
				continue
			}
			seen[req] = true
			merged = append(merged, req)
		}
	}
	return merged
}
