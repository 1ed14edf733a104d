package process

import (
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

const modulePath = "github.com/askiada/go-process"

// RunMetadata identifies a run of a process. The core passes it through without interpreting it.
type RunMetadata struct {
	RunID            uuid.UUID
	Process          string
	ProcessVersion   string
	FrameworkVersion string
	StartedAt        time.Time
}

// NewRunMetadata creates the metadata of a new run of process at version.
func NewRunMetadata(process, version string) RunMetadata {
	return RunMetadata{
		RunID:            uuid.New(),
		Process:          process,
		ProcessVersion:   version,
		FrameworkVersion: frameworkVersion(),
		StartedAt:        time.Now().UTC(),
	}
}

// frameworkVersion returns the version of this module in the running binary, "0" when unknown.
func frameworkVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "0"
	}
	if info.Main.Path == modulePath && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			return dep.Version
		}
	}

	return "0"
}
