package usecase

import "mcp-gateway/internal/domain/entity"

// CheckProtocolVersion accepts an empty version (the default applies) or one
// of the supported versions. Both the edge header check and the body check
// call it so they cannot drift apart.
func CheckProtocolVersion(version string) error {
	if version == "" || entity.IsSupportedProtocolVersion(version) {
		return nil
	}
	return entity.NewUnsupportedVersionError(version)
}
