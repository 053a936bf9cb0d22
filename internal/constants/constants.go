// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Frame processing constants
const (
	// JPEGQuality is the quality used when re-encoding frames for the inference engine
	JPEGQuality = 85

	// MaxFrameSize is the maximum accepted size of a pushed frame in bytes (10MB)
	MaxFrameSize = 10 << 20
)

// Device constants
const (
	// VideoDeviceGlob matches V4L2 capture devices on the host
	VideoDeviceGlob = "/dev/video*"

	// VideoInputKind is the browser MediaDeviceInfo kind for cameras
	VideoInputKind = "videoinput"
)

// Facing modes as understood by getUserMedia
const (
	FacingModeUser        = "user"
	FacingModeEnvironment = "environment"
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)
