package repository

import (
	"context"
	"encoding/json"
	"log"
	"sort"

	"github.com/ufakz/architectai/internal/domain"
)

// LoadVersions rebuilds the version history purely from the remote layout.
// Every failure is scoped to one version directory or one blob: a version
// whose record is missing or malformed is logged and skipped, a missing
// blob degrades to an absent field. The result is sorted ascending by
// sequence number; the remote listing order is never trusted.
func (r *Repository) LoadVersions(ctx context.Context) ([]domain.Version, error) {
	entries, err := r.store.List(ctx, versionsDir)
	if err != nil {
		return nil, err
	}

	versions := make([]domain.Version, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		v, ok := r.loadVersion(ctx, e.Name)
		if !ok {
			continue
		}
		versions = append(versions, v)
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].SequenceNumber < versions[j].SequenceNumber
	})
	return versions, nil
}

func (r *Repository) loadVersion(ctx context.Context, versionID string) (domain.Version, bool) {
	f, err := r.store.Read(ctx, versionMetaPath(versionID))
	if err != nil {
		log.Printf("reconcile: skipping version %s: %v", versionID, err)
		return domain.Version{}, false
	}
	var rec versionRecord
	if err := json.Unmarshal(f.Content, &rec); err != nil {
		log.Printf("reconcile: skipping version %s: malformed record: %v", versionID, err)
		return domain.Version{}, false
	}

	v := rec.toDomain()
	for i := range v.Diagrams {
		blob, err := r.store.Read(ctx, diagramPath(versionID, v.Diagrams[i].ID))
		if err != nil {
			log.Printf("reconcile: version %s: diagram %s unavailable: %v", versionID, v.Diagrams[i].ID, err)
			continue
		}
		v.Diagrams[i].Image = blob.Content
	}
	if rec.HasRefined {
		blob, err := r.store.Read(ctx, refinedPath(versionID))
		if err != nil {
			log.Printf("reconcile: version %s: refined image unavailable: %v", versionID, err)
		} else {
			v.RefinedImage = blob.Content
		}
	}
	return v, true
}
