package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/kozaktomas/facescan/internal/face"
)

func TestAnnotate(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	boxes := []Box{
		{X: 5, Y: 5, Width: 10, Height: 10, Match: face.MatchResult{Label: "alice", Distance: 0.1}},
		{X: 30, Y: 30, Width: 10, Height: 10, Match: face.Unknown(0.9)},
	}

	out := Annotate(src, boxes, 2)

	if got := out.RGBAAt(5, 5); got != knownColor {
		t.Errorf("expected known color at box corner, got %v", got)
	}
	if got := out.RGBAAt(30, 35); got != unknownColor {
		t.Errorf("expected unknown color on box edge, got %v", got)
	}
	if got := out.RGBAAt(10, 10); got != (color.RGBA{}) {
		t.Errorf("expected box interior untouched, got %v", got)
	}
	if got := src.RGBAAt(5, 5); got != (color.RGBA{}) {
		t.Error("expected source image unmodified")
	}
}

func TestAnnotate_BoxOutsideFrame(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	out := Annotate(src, []Box{{X: -10, Y: -10, Width: 100, Height: 100}}, 3)

	if out.Bounds() != src.Bounds() {
		t.Errorf("expected bounds %v, got %v", src.Bounds(), out.Bounds())
	}
}

func TestAnnotateJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 40)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := AnnotateJPEG(buf.Bytes(), []Box{{X: 1, Y: 1, Width: 20, Height: 20, Match: face.Unknown(0.9)}}, 2)
	if err != nil {
		t.Fatalf("AnnotateJPEG: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 40 {
		t.Errorf("expected width 40, got %d", img.Bounds().Dx())
	}

	if _, err := AnnotateJPEG([]byte("nope"), nil, 2); err == nil {
		t.Error("expected decode error")
	}
}
