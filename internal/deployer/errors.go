package deployer

import "errors"

// Every deployer error wraps exactly one of these. All of them are terminal:
// nothing is retried or recovered locally.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrToolingMissing   = errors.New("control-plane CLI missing")
	ErrArtifactNotFound = errors.New("archive not found")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUploadFailed     = errors.New("upload failed")
	ErrStartFailed      = errors.New("start failed")
)
