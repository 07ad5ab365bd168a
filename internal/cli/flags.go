package cli

import (
	"time"

	"mtr/internal/config"
)

// Flags holds command-line flags
type Flags struct {
	Project            string
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

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		Processors:         f.Processors,
		Timeout:            f.Timeout,
		NameFilter:         f.NameFilter,
		All:                f.All,
		OnlyFailed:         f.OnlyFailed,
		KeepEnv:            f.KeepEnv,
		StrictRequirements: f.StrictRequirements,
		Python:             f.Python,
		Databases:          f.Databases,
		Verbose:            f.Verbose,
		OpenFailures:       f.OpenFailures,
		Requirements:       f.Requirements,
	}
}
