package version

import "fmt"

// Version is the current version of the tide-trading library.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/tide-trading/internal/version.Version=1.2.3"
var Version = "v0.3.0"

// GetVersion returns the current version of the library.
func GetVersion() string {
	return Version
}

// UserAgent returns the identifying user-agent value attached to every
// outbound HTTP request.
func UserAgent() string {
	return fmt.Sprintf("tide-trading/%s", Version)
}
