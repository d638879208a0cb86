package repository

import (
	"time"

	"github.com/ufakz/architectai/internal/domain"
)

// projectRecord is the persisted shape of architectai.json.
type projectRecord struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Visibility      string    `json:"visibility,omitempty"`
	Owner           string    `json:"owner"`
	Repo            string    `json:"repo"`
	URL             string    `json:"url,omitempty"`
	LatestVersionID string    `json:"latest_version_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func projectToRecord(p domain.Project) projectRecord {
	return projectRecord{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Visibility:      string(p.Visibility),
		Owner:           p.Remote.Owner,
		Repo:            p.Remote.Name,
		URL:             p.Remote.URL,
		LatestVersionID: p.LatestVersionID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (r projectRecord) toDomain() domain.Project {
	visibility := domain.Visibility(r.Visibility)
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}
	return domain.Project{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		Visibility:      visibility,
		Remote:          domain.RemoteLocation{Owner: r.Owner, Name: r.Repo, URL: r.URL},
		LatestVersionID: r.LatestVersionID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// diagramRecord stores a diagram's metadata plus the name of the blob file
// written next to it. Only files named here are considered part of the
// version; anything else in the directory is invisible garbage.
type diagramRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file"`
}

type specRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// versionRecord is the persisted shape of version.json. Image payloads live
// in sibling files; the record only enumerates them.
type versionRecord struct {
	ID             string          `json:"id"`
	SequenceNumber int             `json:"sequence_number"`
	CreatedAt      time.Time       `json:"created_at"`
	Status         string          `json:"status"`
	Diagrams       []diagramRecord `json:"diagrams"`
	HasRefined     bool            `json:"has_refined"`
	Specs          []specRecord    `json:"specs"`
	BuildPlan      string          `json:"build_plan,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

func versionToRecord(v domain.Version) versionRecord {
	rec := versionRecord{
		ID:             v.ID,
		SequenceNumber: v.SequenceNumber,
		CreatedAt:      v.CreatedAt,
		Status:         string(v.Status),
		HasRefined:     len(v.RefinedImage) > 0,
		BuildPlan:      v.BuildPlan,
		ErrorMessage:   v.ErrorMessage,
	}
	rec.Diagrams = make([]diagramRecord, 0, len(v.Diagrams))
	for _, d := range v.Diagrams {
		rec.Diagrams = append(rec.Diagrams, diagramRecord{
			ID:   d.ID,
			Name: d.Name,
			Kind: string(d.Kind),
			File: diagramFileName(d.ID),
		})
	}
	rec.Specs = make([]specRecord, 0, len(v.Specs))
	for _, s := range v.Specs {
		rec.Specs = append(rec.Specs, specRecord{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Notes:       s.Notes,
		})
	}
	return rec
}

// toDomain rebuilds the version without its blobs; the reconciler fills
// those in best-effort afterwards.
func (r versionRecord) toDomain() domain.Version {
	v := domain.Version{
		ID:             r.ID,
		SequenceNumber: r.SequenceNumber,
		CreatedAt:      r.CreatedAt,
		Status:         domain.VersionStatus(r.Status),
		BuildPlan:      r.BuildPlan,
		ErrorMessage:   r.ErrorMessage,
	}
	v.Diagrams = make([]domain.Diagram, 0, len(r.Diagrams))
	for _, d := range r.Diagrams {
		v.Diagrams = append(v.Diagrams, domain.Diagram{
			ID:   d.ID,
			Name: d.Name,
			Kind: domain.DiagramKind(d.Kind),
		})
	}
	v.Specs = make([]domain.ComponentSpec, 0, len(r.Specs))
	for _, s := range r.Specs {
		v.Specs = append(v.Specs, domain.ComponentSpec{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Notes:       s.Notes,
		})
	}
	return v
}
