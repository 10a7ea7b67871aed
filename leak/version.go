package leak

// Version information for the Pure-Go Leak Detector runtime.
const (
	// Version is the current version of the runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the leak detector.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Engine names the tracking engine in use.
	Engine string

	// ExitCode is the status substituted for leaky successful exits.
	ExitCode int
}

// GetInfo returns information about the leak detector runtime.
func GetInfo() Info {
	r := Default()
	name := "custom"
	if r.Tracker != nil {
		name = "reference tracker"
	}
	return Info{
		Version:  Version,
		Engine:   name,
		ExitCode: r.Options.ExitCode,
	}
}
