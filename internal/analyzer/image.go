package analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/kozaktomas/facescan/internal/constants"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrUndecodable means the frame is not an image in a supported format.
var ErrUndecodable = errors.New("undecodable frame")

// PrepareFrame decodes an encoded frame, scales it to exactly width x height
// and re-encodes it as JPEG. Detection boxes computed on the result are in
// overlay pixel units.
func PrepareFrame(data []byte, width, height int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	bounds := img.Bounds()
	if width <= 0 || height <= 0 || (bounds.Dx() == width && bounds.Dy() == height) {
		// Re-encode as JPEG to ensure consistent format.
		return encodeJPEG(img)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
	return encodeJPEG(scaled)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
