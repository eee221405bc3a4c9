// Package utils provides shared helpers: loggers, path handling and version lookup.
package utils

import (
	"runtime/debug"
)

const (
	unknownVersion      = "unknown"
	developmentVersion  = "(devel)"
	revisionSettingKey  = "vcs.revision"
	modifiedSettingKey  = "vcs.modified"
	modifiedSettingTrue = "true"
	dirtyRevisionSuffix = "-dirty"
	shortRevisionLength = 12
)

// Version is stamped at link time:
//
//	go build -ldflags "-X github.com/tyemirov/ctxtree/internal/utils.Version=v1.2.3"
var Version string

// GetApplicationVersion reports the version of the running binary. It never
// inspects the working directory, which usually belongs to the tree being
// summarized rather than to ctxtree.
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if !buildInfoAvailable {
		buildInfo = nil
	}
	return ResolveVersion(Version, buildInfo)
}

// ResolveVersion picks the linked version, then the module version recorded in
// buildInfo, then the VCS revision the binary was built from.
func ResolveVersion(linkedVersion string, buildInfo *debug.BuildInfo) string {
	if linkedVersion != "" {
		return linkedVersion
	}
	if buildInfo == nil {
		return unknownVersion
	}
	if buildInfo.Main.Version != "" && buildInfo.Main.Version != developmentVersion {
		return buildInfo.Main.Version
	}
	revision := ""
	modified := false
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case revisionSettingKey:
			revision = setting.Value
		case modifiedSettingKey:
			modified = setting.Value == modifiedSettingTrue
		}
	}
	if revision == "" {
		return unknownVersion
	}
	if len(revision) > shortRevisionLength {
		revision = revision[:shortRevisionLength]
	}
	if modified {
		revision += dirtyRevisionSuffix
	}
	return revision
}
