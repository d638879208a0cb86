// Package session owns the one-active-project lifecycle and exposes the
// command surface the CLI (or any other front end) drives: create/open/close
// a project, create and regenerate versions, generate build plans, edit spec
// notes. The ledger lives exactly as long as the open project.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ufakz/architectai/internal/domain"
	"github.com/ufakz/architectai/internal/ledger"
	"github.com/ufakz/architectai/internal/pipeline"
	"github.com/ufakz/architectai/internal/remotestore"
	"github.com/ufakz/architectai/internal/repository"
)

var (
	ErrNoOpenProject   = errors.New("session: no open project")
	ErrVersionNotFound = errors.New("session: version not found")
	ErrSpecNotFound    = errors.New("session: spec not found")
)

// StoreFactory builds the remote store for a project's location.
type StoreFactory func(loc domain.RemoteLocation) remotestore.Store

// Session is the application service. One project is active at a time;
// opening a new one replaces the previous state, closing discards it.
type Session struct {
	admin  repository.Admin
	stores StoreFactory
	orch   *pipeline.Orchestrator
	owner  string

	mu      sync.Mutex
	project *domain.Project
	ledger  *ledger.Ledger
	repo    *repository.Repository

	// pipelines tracks in-flight runs so tests and shutdown can wait.
	pipelines sync.WaitGroup
}

func New(admin repository.Admin, stores StoreFactory, orch *pipeline.Orchestrator, owner string) *Session {
	return &Session{admin: admin, stores: stores, orch: orch, owner: owner}
}

// CreateProject bootstraps a remote repository and opens the new project
// with an empty ledger.
func (s *Session) CreateProject(ctx context.Context, name, description string, visibility domain.Visibility) (domain.Project, error) {
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}
	project, repo, err := repository.Bootstrap(ctx, s.admin, s.stores, name, description, visibility)
	if err != nil {
		return domain.Project{}, err
	}
	s.mu.Lock()
	s.project = &project
	s.repo = repo
	s.ledger = ledger.New()
	s.mu.Unlock()
	return project, nil
}

// OpenProject loads a project and reconciles its version history into a
// fresh ledger.
func (s *Session) OpenProject(ctx context.Context, loc domain.RemoteLocation) (domain.Project, error) {
	repo := repository.New(s.stores(loc))
	project, err := repo.LoadProject(ctx)
	if err != nil {
		return domain.Project{}, fmt.Errorf("open project %s/%s: %w", loc.Owner, loc.Name, err)
	}
	versions, err := repo.LoadVersions(ctx)
	if err != nil {
		return domain.Project{}, fmt.Errorf("reconcile %s/%s: %w", loc.Owner, loc.Name, err)
	}
	s.mu.Lock()
	s.project = &project
	s.repo = repo
	s.ledger = ledger.NewSeeded(versions)
	s.mu.Unlock()
	return project, nil
}

// ListProjects names the owner's repositories tagged as projects.
func (s *Session) ListProjects(ctx context.Context) ([]string, error) {
	return repository.ListProjects(ctx, s.admin, s.owner)
}

// CloseProject discards the in-memory state. In-flight pipelines keep
// running against the discarded ledger; their updates are no-ops there and
// their persistence attempts still target the project they started with.
func (s *Session) CloseProject() {
	s.mu.Lock()
	s.project = nil
	s.repo = nil
	s.ledger = nil
	s.mu.Unlock()
}

func (s *Session) current() (domain.Project, *ledger.Ledger, *repository.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return domain.Project{}, nil, nil, ErrNoOpenProject
	}
	return *s.project, s.ledger, s.repo, nil
}

// CreateVersion appends a new pending version and starts its pipeline in
// the background. The returned version is the pending snapshot; progress
// lands in the ledger.
func (s *Session) CreateVersion(ctx context.Context, diagrams []domain.Diagram) (domain.Version, error) {
	project, led, repo, err := s.current()
	if err != nil {
		return domain.Version{}, err
	}
	v := led.CreateVersion(diagrams)

	images := make([][]byte, 0, len(diagrams))
	for _, d := range diagrams {
		images = append(images, d.Image)
	}

	s.pipelines.Add(1)
	go func() {
		defer s.pipelines.Done()
		s.runPipeline(ctx, project, led, repo, v.ID, images)
	}()
	return v, nil
}

// runPipeline references the ledger it was started with by closure, never
// through the session, so a pipeline outliving its project patches the
// discarded ledger harmlessly.
func (s *Session) runPipeline(ctx context.Context, project domain.Project, led *ledger.Ledger, repo *repository.Repository, versionID string, images [][]byte) {
	res, err := s.orch.Process(ctx, images, func(status domain.VersionStatus) {
		switch status {
		case domain.StatusRefining, domain.StatusSpecifying, domain.StatusError:
			led.UpdateVersion(versionID, ledger.VersionPatch{Status: &status})
		case domain.StatusPending, domain.StatusComplete:
			// pending is the initial state; complete is patched below
			// together with the artifacts.
		}
	})
	if err != nil {
		status := domain.StatusError
		msg := err.Error()
		led.UpdateVersion(versionID, ledger.VersionPatch{Status: &status, ErrorMessage: &msg})
		log.Printf("session: version %s pipeline failed: %v", versionID, err)
		return
	}

	status := domain.StatusComplete
	led.UpdateVersion(versionID, ledger.VersionPatch{
		Status:       &status,
		RefinedImage: res.RefinedImage,
		Specs:        res.Specs,
	})

	if v, ok := led.Version(versionID); ok {
		if err := repo.SaveVersion(ctx, project, v); err != nil {
			// Persistence is best-effort; the in-memory result stands.
			log.Printf("session: version %s save failed: %v", versionID, err)
		}
	}
}

// Wait blocks until all in-flight pipelines finished. Used by tests and by
// the CLI before exiting.
func (s *Session) Wait() {
	s.pipelines.Wait()
}

// Regenerate creates a brand-new version from an existing version's diagram
// snapshot and runs the pipeline on it. The old version is untouched.
func (s *Session) Regenerate(ctx context.Context, versionID string) (domain.Version, error) {
	_, led, _, err := s.current()
	if err != nil {
		return domain.Version{}, err
	}
	old, ok := led.Version(versionID)
	if !ok {
		return domain.Version{}, ErrVersionNotFound
	}
	return s.CreateVersion(ctx, old.Diagrams)
}

// GenerateBuildPlan produces (or returns the cached) implementation plan
// for a version and persists it best-effort.
func (s *Session) GenerateBuildPlan(ctx context.Context, versionID string) (string, error) {
	project, led, repo, err := s.current()
	if err != nil {
		return "", err
	}
	v, ok := led.Version(versionID)
	if !ok {
		return "", ErrVersionNotFound
	}
	if v.BuildPlan != "" {
		return v.BuildPlan, nil
	}
	plan, err := s.orch.GeneratePlan(ctx, v.RefinedImage, v.Specs)
	if err != nil {
		return "", err
	}
	led.UpdateVersion(versionID, ledger.VersionPatch{BuildPlan: &plan})

	if updated, ok := led.Version(versionID); ok {
		if err := repo.SaveVersion(ctx, project, updated); err != nil {
			log.Printf("session: version %s plan save failed: %v", versionID, err)
		}
	}
	return plan, nil
}

// UpdateSpecNote edits one spec's user notes, at any time, and re-persists
// the version record best-effort.
func (s *Session) UpdateSpecNote(ctx context.Context, versionID, specID, text string) error {
	project, led, repo, err := s.current()
	if err != nil {
		return err
	}
	v, ok := led.Version(versionID)
	if !ok {
		return ErrVersionNotFound
	}
	found := false
	for i := range v.Specs {
		if v.Specs[i].ID == specID {
			v.Specs[i].Notes = text
			found = true
			break
		}
	}
	if !found {
		return ErrSpecNotFound
	}
	led.UpdateVersion(versionID, ledger.VersionPatch{Specs: v.Specs})

	if updated, ok := led.Version(versionID); ok {
		if err := repo.SaveVersion(ctx, project, updated); err != nil {
			log.Printf("session: version %s note save failed: %v", versionID, err)
		}
	}
	return nil
}

// Version, Latest, LatestComplete, StatusCounts and Versions expose ledger
// reads to the front end.
func (s *Session) Version(id string) (domain.Version, bool) {
	_, led, _, err := s.current()
	if err != nil {
		return domain.Version{}, false
	}
	return led.Version(id)
}

func (s *Session) LatestComplete() (domain.Version, bool) {
	_, led, _, err := s.current()
	if err != nil {
		return domain.Version{}, false
	}
	return led.LatestComplete()
}

func (s *Session) StatusCounts() map[domain.VersionStatus]int {
	_, led, _, err := s.current()
	if err != nil {
		return nil
	}
	return led.StatusCounts()
}

func (s *Session) Versions() []domain.Version {
	_, led, _, err := s.current()
	if err != nil {
		return nil
	}
	return led.Snapshot()
}
