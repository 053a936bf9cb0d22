package overlay

import "github.com/kozaktomas/facescan/internal/face"

// RelativeBox is a bounding box in frame-relative (0-1) coordinates.
type RelativeBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToRelative converts a pixel box to relative coordinates.
// Returns a zero box if the frame size is unknown.
func ToRelative(b face.BoundingBox, width, height int) RelativeBox {
	if width <= 0 || height <= 0 {
		return RelativeBox{}
	}
	return RelativeBox{
		X:      b.X / float64(width),
		Y:      b.Y / float64(height),
		Width:  b.Width / float64(width),
		Height: b.Height / float64(height),
	}
}

// ClampToFrame trims a pixel box to the frame so the overlay never draws
// outside the video element.
func ClampToFrame(b face.BoundingBox, width, height int) face.BoundingBox {
	if width <= 0 || height <= 0 {
		return b
	}
	x1 := min(max(b.X, 0), float64(width))
	y1 := min(max(b.Y, 0), float64(height))
	x2 := min(max(b.X+b.Width, 0), float64(width))
	y2 := min(max(b.Y+b.Height, 0), float64(height))
	return face.BoundingBox{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}
