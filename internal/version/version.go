package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Build-time variables injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const shortCommit = 7

// Info is the build identity reported by "mailcheck version".
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		info := resolve(Get(), bi)
		Version, Commit, Date = info.Version, info.Commit, info.Date
	}
}

// Get returns the current build identity.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// resolve fills fields of base that still hold their placeholder with data
// from the Go build info. Values set through ldflags are kept.
func resolve(base Info, bi *debug.BuildInfo) Info {
	if base.Version == "dev" {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			base.Version = strings.TrimPrefix(v, "v")
		}
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && base.Commit == "none" && s.Value != "":
			base.Commit = s.Value[:min(len(s.Value), shortCommit)]
		case s.Key == "vcs.time" && base.Date == "unknown" && s.Value != "":
			base.Date = s.Value
		}
	}
	return base
}

func (i Info) String() string {
	return fmt.Sprintf("mailcheck %s (commit %s, built %s)", i.Version, i.Commit, i.Date)
}
