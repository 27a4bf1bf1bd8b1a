package entity

import "slices"

// CurrentProtocolVersion is the version assumed when a request omits one.
const CurrentProtocolVersion = "1.0"

// supportedProtocolVersions is shared by the edge header gate and the
// body-level check in the orchestrator.
var supportedProtocolVersions = []string{CurrentProtocolVersion}

// SupportedProtocolVersions returns a copy of the accepted version tags.
func SupportedProtocolVersions() []string {
	return slices.Clone(supportedProtocolVersions)
}

func IsSupportedProtocolVersion(version string) bool {
	return slices.Contains(supportedProtocolVersions, version)
}
