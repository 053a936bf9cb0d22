package session

import (
	"time"

	"github.com/kozaktomas/facescan/internal/face"
)

// Pending is an enrollment candidate waiting for a name.
type Pending struct {
	Embedding face.Embedding  `json:"-"`
	Match     face.MatchResult `json:"match"`
	StagedAt  time.Time        `json:"staged_at"`
}

// State is the per-session view of the capture cycle. Observations and
// Matches are index-aligned and always come from the same pass.
type State struct {
	Loading      bool               `json:"loading"`
	Error        string             `json:"error,omitempty"`
	FacingMode   string             `json:"facing_mode,omitempty"`
	Camera       string             `json:"camera,omitempty"`
	Observations []face.Observation `json:"observations"`
	Matches      []face.MatchResult `json:"matches"`
	Pending      *Pending           `json:"pending,omitempty"`
	ShowInput    bool               `json:"show_input"`
	Generation   uint64             `json:"generation"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Closed       bool               `json:"closed"`
}

// clone returns a copy that shares no slices with s.
func (s State) clone() State {
	out := s
	out.Observations = make([]face.Observation, len(s.Observations))
	copy(out.Observations, s.Observations)
	out.Matches = make([]face.MatchResult, len(s.Matches))
	copy(out.Matches, s.Matches)
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return out
}
