package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/kozaktomas/facescan/internal/constants"
	"golang.org/x/image/draw"
)

var (
	knownColor   = color.RGBA{0, 217, 255, 255}
	unknownColor = color.RGBA{255, 0, 0, 255}
)

// drawHLine draws a horizontal line on the image.
func drawHLine(dst *image.RGBA, x1, x2, y int, c color.RGBA) {
	bounds := dst.Bounds()
	if y < bounds.Min.Y || y >= bounds.Max.Y {
		return
	}
	for x := max(x1, bounds.Min.X); x <= x2 && x < bounds.Max.X; x++ {
		dst.SetRGBA(x, y, c)
	}
}

// drawVLine draws a vertical line on the image.
func drawVLine(dst *image.RGBA, y1, y2, x int, c color.RGBA) {
	bounds := dst.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X {
		return
	}
	for y := max(y1, bounds.Min.Y); y <= y2 && y < bounds.Max.Y; y++ {
		dst.SetRGBA(x, y, c)
	}
}

// Annotate draws every box onto a copy of img. Known identities get a cyan
// outline, unknown faces a red one.
func Annotate(img image.Image, boxes []Box, lineWidth int) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	for _, b := range boxes {
		c := knownColor
		if b.Match.IsUnknown() {
			c = unknownColor
		}
		x1 := bounds.Min.X + int(b.X)
		y1 := bounds.Min.Y + int(b.Y)
		x2 := x1 + int(b.Width)
		y2 := y1 + int(b.Height)
		for w := range lineWidth {
			drawHLine(dst, x1, x2, y1+w, c)
			drawHLine(dst, x1, x2, y2-w, c)
			drawVLine(dst, y1, y2, x1+w, c)
			drawVLine(dst, y1, y2, x2-w, c)
		}
	}
	return dst
}

// AnnotateJPEG decodes a frame, draws the boxes and re-encodes it as JPEG.
func AnnotateJPEG(frame []byte, boxes []Box, lineWidth int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Annotate(img, boxes, lineWidth), &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
