// SPDX-License-Identifier: MIT
//
// Package build manages the build information embedded into the binary at
// compile time with linker flags, for example:
//
//	go build -ldflags "-X visualizer/pkg/build.buildName=visualizer -X visualizer/pkg/build.buildVersion=0.1.0"
//
// Development builds without linker flags keep the defaults below.
package build

import "fmt"

// Description is the one-line summary shown in command help.
const Description = "Real-time audio spectrum visualizer"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the flags for the version command.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

// Set with -X at link time; buildFlags holds the development defaults.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "visualizer",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies the linker variables into the build flags. It returns an
// error naming the first missing variable and leaves the defaults untouched.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
