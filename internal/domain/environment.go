package domain

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment is an isolated, disposable dependency installation scoped to one
// module run. It is passed explicitly to whatever runs inside it and is never
// activated process-wide.
type Environment struct {
	ID        string // Unique per run so concurrent workers never share a directory
	Module    string
	Dir       string // Root of the virtual environment
	Python    string // Interpreter inside Dir
	UtilsRoot string // Prepended to PYTHONPATH
	Vars      map[string]string
}

// BinDir returns the environment's executables directory
func (e Environment) BinDir() string {
	return filepath.Dir(e.Python)
}

// Environ returns the process environment for commands running inside e,
// derived from base (usually os.Environ()).
func (e Environment) Environ(base []string) []string {
	pythonPath := e.UtilsRoot
	out := make([]string, 0, len(base)+len(e.Vars)+3)
	for _, kv := range base {
		key, value, _ := strings.Cut(kv, "=")
		switch key {
		case "PATH":
			out = append(out, "PATH="+joinList(e.BinDir(), value))
			continue
		case "VIRTUAL_ENV", "PYTHONHOME":
			continue
		case "PYTHONPATH":
			pythonPath = joinList(e.UtilsRoot, value)
			continue
		}
		if _, overridden := e.Vars[key]; overridden {
			continue
		}
		out = append(out, kv)
	}
	if !hasKey(base, "PATH") {
		out = append(out, "PATH="+e.BinDir())
	}
	out = append(out, "VIRTUAL_ENV="+e.Dir)
	if pythonPath != "" {
		out = append(out, "PYTHONPATH="+pythonPath)
	}
	for k, v := range e.Vars {
		out = append(out, k+"="+v)
	}
	return out
}

func joinList(first, rest string) string {
	switch {
	case first == "":
		return rest
	case rest == "":
		return first
	}
	return first + string(os.PathListSeparator) + rest
}

func hasKey(env []string, key string) bool {
	for _, kv := range env {
		if k, _, _ := strings.Cut(kv, "="); k == key {
			return true
		}
	}
	return false
}
