// Package buildinfo carries version metadata stamped at link time.
package buildinfo

import "runtime/debug"

// Version is set with -ldflags "-X pgd/internal/support/buildinfo.Version=v1.2.3".
var Version = ""

// String returns the stamped version, falling back to the module version
// recorded by the Go toolchain.
func String() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
