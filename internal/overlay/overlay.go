// Package overlay projects detections and matches into drawable boxes.
package overlay

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/kozaktomas/facescan/internal/capture"
	"github.com/kozaktomas/facescan/internal/face"
	"github.com/kozaktomas/facescan/internal/session"
)

var ErrMisaligned = errors.New("detections and matches differ in length")

// Box is one face as drawn over the video. Pixel fields are in frame units.
type Box struct {
	Index        int              `json:"index"`
	X            float64          `json:"x"`
	Y            float64          `json:"y"`
	Width        float64          `json:"width"`
	Height       float64          `json:"height"`
	Relative     RelativeBox      `json:"relative"`
	Score        float64          `json:"score"`
	Match        face.MatchResult `json:"match"`
	Text         string           `json:"text"`
	LabelOffsetY float64          `json:"label_offset_y"` // label sits directly under the box
}

// View is everything the page needs to render one frame of overlay.
type View struct {
	Loading     bool              `json:"loading"`
	Error       string            `json:"error,omitempty"`
	Camera      string            `json:"camera,omitempty"`
	FacingMode  string            `json:"facing_mode,omitempty"`
	FrameWidth  int               `json:"frame_width"`
	FrameHeight int               `json:"frame_height"`
	Generation  uint64            `json:"generation"`
	Boxes       []Box             `json:"boxes"`
	ShowInput   bool              `json:"show_input"`
	Pending     *face.MatchResult `json:"pending,omitempty"`
	Closed      bool              `json:"closed,omitempty"`
}

// LabelText formats the caption drawn under a box.
func LabelText(m face.MatchResult) string {
	return m.Label + " (" + strconv.FormatFloat(m.Confidence(), 'f', 2, 64) + ")"
}

// Project builds one box per observation, index-aligned with matches.
func Project(obs []face.Observation, matches []face.MatchResult, width, height int) ([]Box, error) {
	if len(obs) != len(matches) {
		return nil, fmt.Errorf("%w: %d detections, %d matches", ErrMisaligned, len(obs), len(matches))
	}

	boxes := make([]Box, len(obs))
	for i, o := range obs {
		b := ClampToFrame(o.Detection.Box, width, height)
		boxes[i] = Box{
			Index:        i,
			X:            b.X,
			Y:            b.Y,
			Width:        b.Width,
			Height:       b.Height,
			Relative:     ToRelative(b, width, height),
			Score:        o.Detection.Score,
			Match:        matches[i],
			Text:         LabelText(matches[i]),
			LabelOffsetY: b.Height,
		}
	}
	return boxes, nil
}

// FromState projects a session snapshot.
func FromState(st session.State, width, height int) (View, error) {
	boxes, err := Project(st.Observations, st.Matches, width, height)
	if err != nil {
		return View{}, err
	}

	v := View{
		Loading:     st.Loading,
		Error:       st.Error,
		FacingMode:  st.FacingMode,
		Camera:      st.Camera,
		FrameWidth:  width,
		FrameHeight: height,
		Generation:  st.Generation,
		Boxes:       boxes,
		ShowInput:   st.ShowInput,
		Closed:      st.Closed,
	}
	if v.Camera == "" && v.FacingMode != "" {
		v.Camera = capture.CameraLabel(v.FacingMode)
	}
	if st.Pending != nil {
		m := st.Pending.Match
		v.Pending = &m
	}
	return v, nil
}
