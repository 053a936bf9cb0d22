package database

import (
	"time"
)

// StoredReference represents one reference embedding of a known identity
type StoredReference struct {
	ID        int64
	Label     string
	Embedding []float32
	Source    string // where the reference came from (file name, "import", ...)
	Dim       int
	CreatedAt time.Time
}

// LabelSummary describes how many references a label has
type LabelSummary struct {
	Label      string `json:"label"`
	References int    `json:"references"`
}
