// Package version identifies the procstream build printed by
// `procstream version`. The version is taken, in order, from the
// release ldflags, the module version recorded by `go install`, or a pseudo
// version built from the VCS stamp. A "+dirty" suffix marks a build from a
// modified checkout.
package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const (
	modulePath = "pkt.systems/procstream"
	unknown    = "v0.0.0-unknown"
	dirty      = "+dirty"
)

// releaseVersion is stamped by release builds:
//
//	go build -ldflags "-X pkt.systems/procstream/internal/version.releaseVersion=v1.0.0"
var releaseVersion = ""

// Current returns the procstream version without the dirty marker.
func Current() string {
	return resolve(false)
}

// CurrentWithDirty returns the procstream version, marked dirty when built
// from a modified checkout.
func CurrentWithDirty() string {
	return resolve(true)
}

// String is the `procstream version` output: "<module> <version>".
func String() string {
	return Module() + " " + CurrentWithDirty()
}

// Module returns the main module path of the running binary.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return modulePath
}

func resolve(withDirty bool) string {
	if v := strings.TrimSpace(releaseVersion); v != "" {
		return markDirty(v, withDirty)
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return unknown
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		return markDirty(v, withDirty)
	}
	if v := vcsPseudoVersion(info, withDirty); v != "" {
		return v
	}
	return unknown
}

func markDirty(v string, withDirty bool) string {
	if withDirty {
		return v
	}
	return strings.TrimSuffix(v, dirty)
}

// vcsPseudoVersion formats the vcs.* build settings the way the go command
// formats pseudo versions, using a 12 character revision.
func vcsPseudoVersion(info *debug.BuildInfo, withDirty bool) string {
	if info == nil {
		return ""
	}
	var revision, stamp string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			stamp = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" || stamp == "" {
		return ""
	}
	committed, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return ""
	}
	v := "v0.0.0-" + committed.UTC().Format("20060102150405") + "-" + revision[:min(len(revision), 12)]
	if modified && withDirty {
		v += dirty
	}
	return v
}
