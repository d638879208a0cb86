// Package repository maps the in-memory project graph onto the remote
// store's directory-of-files layout. The store offers no cross-file
// atomicity, so every multi-file save is an ordered sequence with a
// documented partial-failure policy, never a transaction.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ufakz/architectai/internal/domain"
	"github.com/ufakz/architectai/internal/jsonutil"
	"github.com/ufakz/architectai/internal/remotestore"
)

// Admin is the account-level slice of the github client used to bootstrap
// and discover project repositories.
type Admin interface {
	CreateRepository(ctx context.Context, name, description string, private bool) (owner, repo, url string, err error)
	ReplaceTopics(ctx context.Context, owner, repo string, topics []string) error
	SearchByTopic(ctx context.Context, owner, topic string) ([]string, error)
}

// Repository persists one project against one remote store.
type Repository struct {
	store remotestore.Store
}

func New(store remotestore.Store) *Repository {
	return &Repository{store: store}
}

// Bootstrap creates the remote repository for a new project, tags it for
// discovery, and writes the initial project record.
func Bootstrap(ctx context.Context, admin Admin, store func(loc domain.RemoteLocation) remotestore.Store, name, description string, visibility domain.Visibility) (domain.Project, *Repository, error) {
	owner, repo, url, err := admin.CreateRepository(ctx, name, description, visibility != domain.VisibilityPublic)
	if err != nil {
		return domain.Project{}, nil, err
	}
	if err := admin.ReplaceTopics(ctx, owner, repo, []string{DiscoveryTopic}); err != nil {
		log.Printf("repository: tagging %s/%s failed: %v", owner, repo, err)
	}

	now := time.Now().UTC()
	project := domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Visibility:  visibility,
		Remote:      domain.RemoteLocation{Owner: owner, Name: repo, URL: url},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r := New(store(project.Remote))
	if err := r.SaveProject(ctx, project); err != nil {
		return domain.Project{}, nil, fmt.Errorf("write initial project record: %w", err)
	}
	return project, r, nil
}

// ListProjects returns the names of the owner's repositories tagged as
// projects.
func ListProjects(ctx context.Context, admin Admin, owner string) ([]string, error) {
	return admin.SearchByTopic(ctx, owner, DiscoveryTopic)
}

// SaveProject writes the project record with a fresh UpdatedAt.
func (r *Repository) SaveProject(ctx context.Context, project domain.Project) error {
	project.UpdatedAt = time.Now().UTC()
	raw, err := jsonutil.MarshalIndentNoEscape(projectToRecord(project))
	if err != nil {
		return err
	}
	if _, err := remotestore.Put(ctx, r.store, projectMetaPath, raw); err != nil {
		return fmt.Errorf("write %s: %w", projectMetaPath, err)
	}
	return nil
}

// LoadProject reads the project record; version history is the reconciler's
// job (LoadVersions).
func (r *Repository) LoadProject(ctx context.Context) (domain.Project, error) {
	f, err := r.store.Read(ctx, projectMetaPath)
	if err != nil {
		return domain.Project{}, fmt.Errorf("read %s: %w", projectMetaPath, err)
	}
	var rec projectRecord
	if err := json.Unmarshal(f.Content, &rec); err != nil {
		return domain.Project{}, fmt.Errorf("parse %s: %w", projectMetaPath, err)
	}
	return rec.toDomain(), nil
}

// SaveVersion persists one version. Order matters for failure semantics:
// blobs go first, then version.json, then the convenience files, then the
// project record. A crash between the blob writes and version.json leaves
// orphaned blobs no record references; the reconciler only trusts
// version.json, so orphans are invisible garbage, never corruption.
//
// Persistence is best-effort relative to the already-committed in-memory
// state: conflicts on the convenience files are logged and skipped, and no
// failure here may roll the ledger back.
func (r *Repository) SaveVersion(ctx context.Context, project domain.Project, version domain.Version) error {
	// (a) diagram blobs
	for _, d := range version.Diagrams {
		if len(d.Image) == 0 {
			continue
		}
		if _, err := remotestore.Put(ctx, r.store, diagramPath(version.ID, d.ID), d.Image); err != nil {
			return fmt.Errorf("write diagram %s: %w", d.ID, err)
		}
	}

	// (b) refined image
	if len(version.RefinedImage) > 0 {
		if _, err := remotestore.Put(ctx, r.store, refinedPath(version.ID), version.RefinedImage); err != nil {
			return fmt.Errorf("write refined image: %w", err)
		}
	}

	// (c) version record, the authoritative enumeration of the above
	rawVersion, err := jsonutil.MarshalIndentNoEscape(versionToRecord(version))
	if err != nil {
		return err
	}
	if _, err := remotestore.Put(ctx, r.store, versionMetaPath(version.ID), rawVersion); err != nil {
		return fmt.Errorf("write version record: %w", err)
	}

	// (d) latest-specs mirror, (e) build plan: convenience files, not
	// authoritative; a conflict here does not fail the save.
	if len(version.Specs) > 0 {
		specs := versionToRecord(version).Specs
		if raw, err := jsonutil.MarshalIndentNoEscape(specs); err == nil {
			if _, err := remotestore.Put(ctx, r.store, latestSpecsPath, raw); err != nil {
				log.Printf("repository: latest-specs write skipped: %v", err)
			}
		}
	}
	if version.BuildPlan != "" {
		if _, err := remotestore.Put(ctx, r.store, planPath(version.SequenceNumber), []byte(version.BuildPlan)); err != nil {
			log.Printf("repository: build plan write skipped: %v", err)
		}
	}

	// (f) project record with the latest-version pointer. Two concurrent
	// savers race on this pointer; last writer wins.
	project.LatestVersionID = version.ID
	if err := r.SaveProject(ctx, project); err != nil {
		log.Printf("repository: project record update skipped: %v", err)
	}
	return nil
}
