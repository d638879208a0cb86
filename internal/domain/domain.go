// Package domain holds the core model shared by the ledger, pipeline,
// repository and session layers. Types are storage-agnostic; the
// repository package owns the persisted file formats.
package domain

import "time"

// DiagramKind distinguishes the main architecture sketch from supporting ones.
type DiagramKind string

const (
	DiagramKindPrimary   DiagramKind = "primary"
	DiagramKindAuxiliary DiagramKind = "auxiliary"
)

// Diagram is one user-drawn sketch. Image is nil until something has been
// drawn on it.
type Diagram struct {
	ID    string
	Name  string
	Kind  DiagramKind
	Image []byte
}

// Clone returns a deep copy, so a version's snapshot is detached from the
// live sketch state.
func (d Diagram) Clone() Diagram {
	out := d
	if d.Image != nil {
		out.Image = append([]byte(nil), d.Image...)
	}
	return out
}

// CloneDiagrams deep-copies a diagram slice.
func CloneDiagrams(in []Diagram) []Diagram {
	if in == nil {
		return nil
	}
	out := make([]Diagram, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}
	return out
}

// VersionStatus is the processing state of one version.
type VersionStatus string

const (
	StatusPending    VersionStatus = "pending"
	StatusRefining   VersionStatus = "refining"
	StatusSpecifying VersionStatus = "specifying"
	StatusComplete   VersionStatus = "complete"
	StatusError      VersionStatus = "error"
)

// IsTerminal reports whether the status can no longer change.
func (s VersionStatus) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusError:
		return true
	case StatusPending, StatusRefining, StatusSpecifying:
		return false
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s VersionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRefining, StatusSpecifying, StatusComplete, StatusError:
		return true
	}
	return false
}

// ComponentSpec is one inferred architectural component. Notes is free text
// the user may edit at any time, including after the owning version reached
// a terminal status.
type ComponentSpec struct {
	ID          string
	Name        string
	Description string
	Notes       string
}

// Version is one immutable, sequence-numbered snapshot of the sketches plus
// the artifacts derived from them. SequenceNumber and Diagrams never change
// after creation; the artifact fields are filled in as the pipeline runs.
type Version struct {
	ID             string
	SequenceNumber int
	CreatedAt      time.Time
	Status         VersionStatus
	Diagrams       []Diagram
	RefinedImage   []byte
	Specs          []ComponentSpec
	BuildPlan      string
	ErrorMessage   string
}

// Clone returns a deep copy of the version.
func (v Version) Clone() Version {
	out := v
	out.Diagrams = CloneDiagrams(v.Diagrams)
	if v.RefinedImage != nil {
		out.RefinedImage = append([]byte(nil), v.RefinedImage...)
	}
	if v.Specs != nil {
		out.Specs = append([]ComponentSpec(nil), v.Specs...)
	}
	return out
}

// Visibility of the backing remote repository.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// RemoteLocation names the repository a project is persisted to.
type RemoteLocation struct {
	Owner string
	Name  string
	URL   string
}

// Project is the currently open design project. One project is active per
// session; closing it discards the in-memory state, the remote layout stays
// authoritative.
type Project struct {
	ID              string
	Name            string
	Description     string
	Visibility      Visibility
	Remote          RemoteLocation
	LatestVersionID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
