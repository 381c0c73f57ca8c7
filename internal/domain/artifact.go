package domain

import (
	"path/filepath"
	"time"
)

// Family identifies one of the two independent dataset pipelines.
type Family string

const (
	FamilyWater     Family = "water_quality"
	FamilyLivestock Family = "livestock"
)

// ArtifactKind distinguishes raw downloads, tidy tables and reference files.
type ArtifactKind string

const (
	ArtifactRaw       ArtifactKind = "raw"
	ArtifactTidy      ArtifactKind = "tidy"
	ArtifactReference ArtifactKind = "reference"
)

// Artifact describes a file produced or fetched by a run. It is what artifact
// stores and notifiers receive.
type Artifact struct {
	RunID     string       `json:"run_id"`
	Family    Family       `json:"family"`
	Kind      ArtifactKind `json:"kind"`
	Path      string       `json:"path"`
	Rows      int          `json:"rows,omitempty"`
	Columns   []string     `json:"columns,omitempty"`
	WrittenAt time.Time    `json:"written_at"`
}

// NewArtifact stamps an artifact with the package clock.
func NewArtifact(runID string, family Family, kind ArtifactKind, path string) Artifact {
	return Artifact{
		RunID:     runID,
		Family:    family,
		Kind:      kind,
		Path:      path,
		WrittenAt: Now(),
	}
}

// Name is the artifact's file name without directories.
func (a Artifact) Name() string {
	return filepath.Base(a.Path)
}
