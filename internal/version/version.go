// Package version reports build metadata stamped in with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the one-line banner printed by "signcap version".
func String() string {
	return fmt.Sprintf("signcap %s (commit=%s, date=%s, go=%s)", resolved(), Commit, Date, runtime.Version())
}

// UserAgent is sent on outbound HTTP requests.
func UserAgent() string {
	return "signcap/" + resolved()
}

// resolved falls back to the module version recorded by "go install" when
// the binary was not stamped.
func resolved() string {
	if Version != "dev" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return Version
	}
	return info.Main.Version
}
