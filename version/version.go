package version

import "runtime/debug"

// The moog commands print VersionOrHash for -v. Release builds stamp Version
// with the linker, e.g. for moog-live:
// go build -ldflags "-X github.com/vsariola/moog/version.Version=$(git describe --dirty)" ./cmd/moog-live

var Version string

var Hash = func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		modified := false
		for _, setting := range info.Settings {
			if setting.Key == "vcs.modified" && setting.Value == "true" {
				modified = true
				break
			}
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				shortHash := setting.Value[:7]
				if modified {
					return shortHash + "-dirty"
				}
				return shortHash
			}
		}
	}
	return ""
}()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()
