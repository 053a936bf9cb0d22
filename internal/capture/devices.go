package capture

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/kozaktomas/facescan/internal/constants"
)

// Device mirrors the browser's MediaDeviceInfo.
type Device struct {
	DeviceID string `json:"deviceId"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	GroupID  string `json:"groupId,omitempty"`
}

// VideoInputs filters devices down to cameras.
func VideoInputs(devices []Device) []Device {
	var out []Device
	for _, d := range devices {
		if d.Kind == constants.VideoInputKind {
			out = append(out, d)
		}
	}
	return out
}

// SelectFacingMode picks the front camera when there is at most one video
// input and the rear camera otherwise.
func SelectFacingMode(devices []Device) string {
	if len(VideoInputs(devices)) < 2 {
		return constants.FacingModeUser
	}
	return constants.FacingModeEnvironment
}

// CameraLabel returns the display name for a facing mode.
func CameraLabel(facingMode string) string {
	if facingMode == constants.FacingModeUser {
		return "Front"
	}
	return "Back"
}

// LocalDevices lists V4L2 capture devices on the host.
func LocalDevices() ([]Device, error) {
	return globDevices(constants.VideoDeviceGlob)
}

func globDevices(pattern string) ([]Device, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list video devices: %w", err)
	}
	sort.Strings(paths)

	devices := make([]Device, 0, len(paths))
	for _, p := range paths {
		devices = append(devices, Device{
			DeviceID: p,
			Kind:     constants.VideoInputKind,
			Label:    filepath.Base(p),
		})
	}
	return devices, nil
}
