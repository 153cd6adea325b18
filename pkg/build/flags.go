// SPDX-License-Identifier: MIT
//
// Package build exposes the build metadata embedded at link time:
//
//	go build -ldflags "-X audiowheel/pkg/build.buildName=audiowheel \
//	  -X audiowheel/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds carry no ldflags and report the defaults below.
package build

import (
	"errors"
	"fmt"
)

// Info is the build metadata shown by --version and logged at startup.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:        "audiowheel",
		Description: "Audio-reactive radial spectrum display",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies the ldflags values into the build info. A build without
// any ldflags keeps the defaults; a build that sets some but not all of them
// is reported as an error so release pipelines fail loudly.
func Initialize() error {
	set := map[string]string{
		"BuildName":    buildName,
		"BuildTime":    buildTime,
		"BuildCommit":  buildCommit,
		"BuildVersion": buildVersion,
	}

	var missing []error
	provided := 0
	for _, key := range []string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"} {
		if set[key] == "" {
			missing = append(missing, fmt.Errorf("%s is required", key))
			continue
		}
		provided++
	}

	if provided == 0 {
		return nil
	}
	if len(missing) > 0 {
		return errors.Join(missing...)
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildInfo
}

// String formats the info for version output.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
