// Package build holds build-time information.
package build

// Values overwritten by linker flags, for example
// -ldflags "-X go.trai.ch/mk/internal/build.Version=v1.2.0".
var (
	// Version is the release of mk.
	Version = "dev"
	// Commit is the revision mk was built from.
	Commit = "none"
	// Date is when mk was built.
	Date = "unknown"
)
