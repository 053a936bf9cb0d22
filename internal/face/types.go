// Package face defines the records shared by the capture, analysis and matching stages.
package face

import (
	"encoding/json"
	"math"
)

// UnknownLabel is returned by the matcher when no reference is close enough.
const UnknownLabel = "unknown"

// Embedding is a face identity vector produced by the inference engine.
// Embeddings are never modified after creation; share them freely.
type Embedding []float32

// BoundingBox is a face rectangle in frame-pixel units.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoxFromCorners converts an [x1, y1, x2, y2] corner box into a BoundingBox.
// Returns a zero box if the slice is malformed.
func BoxFromCorners(bbox []float64) BoundingBox {
	if len(bbox) != 4 {
		return BoundingBox{}
	}
	return BoundingBox{
		X:      bbox[0],
		Y:      bbox[1],
		Width:  bbox[2] - bbox[0],
		Height: bbox[3] - bbox[1],
	}
}

// Corners returns the box as [x1, y1, x2, y2].
func (b BoundingBox) Corners() []float64 {
	return []float64{b.X, b.Y, b.X + b.Width, b.Y + b.Height}
}

// Detection is a located face within a frame.
type Detection struct {
	Box   BoundingBox `json:"box"`
	Score float64     `json:"score"`
}

// Observation pairs one detection with the embedding computed for the same face.
type Observation struct {
	Detection Detection `json:"detection"`
	Embedding Embedding `json:"-"`
}

// MatchResult is the best reference match for one query embedding.
// Distance is unbounded above; it is +Inf when the profile is empty.
type MatchResult struct {
	Label    string
	Distance float64
}

// Unknown builds the sentinel result with the given nearest distance.
func Unknown(distance float64) MatchResult {
	return MatchResult{Label: UnknownLabel, Distance: distance}
}

// IsUnknown reports whether the result is the unknown sentinel.
func (m MatchResult) IsUnknown() bool {
	return m.Label == UnknownLabel
}

// Confidence returns 1 - distance clamped to [0, 1].
func (m MatchResult) Confidence() float64 {
	c := 1 - m.Distance
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

type matchResultJSON struct {
	Label      string   `json:"label"`
	Distance   *float64 `json:"distance"`
	Confidence float64  `json:"confidence"`
}

// MarshalJSON encodes an infinite distance as null.
func (m MatchResult) MarshalJSON() ([]byte, error) {
	out := matchResultJSON{Label: m.Label, Confidence: m.Confidence()}
	if !math.IsInf(m.Distance, 0) && !math.IsNaN(m.Distance) {
		d := m.Distance
		out.Distance = &d
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null distance as +Inf.
func (m *MatchResult) UnmarshalJSON(data []byte) error {
	var in matchResultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.Label = in.Label
	if in.Distance == nil {
		m.Distance = math.Inf(1)
	} else {
		m.Distance = *in.Distance
	}
	return nil
}

// Profile maps an identity label to one or more reference embeddings.
// A loaded profile is treated as read-only.
type Profile map[string][]Embedding

// Count returns the total number of reference embeddings.
func (p Profile) Count() int {
	n := 0
	for _, refs := range p {
		n += len(refs)
	}
	return n
}
