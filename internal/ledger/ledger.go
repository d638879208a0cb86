// Package ledger keeps the append-only version history of the open project.
// It is the single in-memory source of truth the UI layer reads; the
// pipeline and the reconciler only ever talk to it through its methods.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ufakz/architectai/internal/domain"
)

// Ledger is an ordered, append-only collection of versions. All methods are
// safe for concurrent use; pipeline goroutines patch it while the caller
// reads it.
type Ledger struct {
	mu       sync.Mutex
	versions []domain.Version
}

func New() *Ledger {
	return &Ledger{}
}

// NewSeeded builds a ledger from reconciled history. The slice must already
// be sorted ascending by sequence number; the reconciler guarantees that.
func NewSeeded(versions []domain.Version) *Ledger {
	l := &Ledger{versions: make([]domain.Version, 0, len(versions))}
	for _, v := range versions {
		l.versions = append(l.versions, v.Clone())
	}
	return l
}

// CreateVersion appends a new pending version whose sequence number is
// count+1. Diagrams are copied by value so later edits to the live sketches
// never reach an already-created version. It cannot fail.
func (l *Ledger) CreateVersion(diagrams []domain.Diagram) domain.Version {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := domain.Version{
		ID:             uuid.NewString(),
		SequenceNumber: len(l.versions) + 1,
		CreatedAt:      time.Now().UTC(),
		Status:         domain.StatusPending,
		Diagrams:       domain.CloneDiagrams(diagrams),
	}
	l.versions = append(l.versions, v.Clone())
	return v
}

// VersionPatch carries the fields UpdateVersion may change. Nil pointer or
// nil slice means "leave as is"; the sequence number and the diagrams
// snapshot are deliberately not patchable.
type VersionPatch struct {
	Status       *domain.VersionStatus
	RefinedImage []byte
	Specs        []domain.ComponentSpec
	BuildPlan    *string
	ErrorMessage *string
}

// UpdateVersion merges patch into the version matching id. An unknown id is
// a silent no-op: a pipeline finishing after the project was closed patches
// a discarded ledger, which is benign.
func (l *Ledger) UpdateVersion(id string, patch VersionPatch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.versions {
		if l.versions[i].ID != id {
			continue
		}
		v := &l.versions[i]
		if patch.Status != nil {
			v.Status = *patch.Status
		}
		if patch.RefinedImage != nil {
			v.RefinedImage = append([]byte(nil), patch.RefinedImage...)
		}
		if patch.Specs != nil {
			v.Specs = append([]domain.ComponentSpec(nil), patch.Specs...)
		}
		if patch.BuildPlan != nil {
			v.BuildPlan = *patch.BuildPlan
		}
		if patch.ErrorMessage != nil {
			v.ErrorMessage = *patch.ErrorMessage
		}
		return
	}
}

// Version returns a copy of the version matching id.
func (l *Ledger) Version(id string) (domain.Version, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.versions {
		if l.versions[i].ID == id {
			return l.versions[i].Clone(), true
		}
	}
	return domain.Version{}, false
}

// Latest returns the most recently created version.
func (l *Ledger) Latest() (domain.Version, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.versions) == 0 {
		return domain.Version{}, false
	}
	return l.versions[len(l.versions)-1].Clone(), true
}

// LatestComplete scans from the end for the most recent version whose
// status is complete.
func (l *Ledger) LatestComplete() (domain.Version, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.versions) - 1; i >= 0; i-- {
		if l.versions[i].Status == domain.StatusComplete {
			return l.versions[i].Clone(), true
		}
	}
	return domain.Version{}, false
}

// StatusCounts aggregates versions per status for progress display.
func (l *Ledger) StatusCounts() map[domain.VersionStatus]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[domain.VersionStatus]int, 5)
	for i := range l.versions {
		counts[l.versions[i].Status]++
	}
	return counts
}

// Snapshot returns a defensive copy of the full history in order.
func (l *Ledger) Snapshot() []domain.Version {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Version, 0, len(l.versions))
	for i := range l.versions {
		out = append(out, l.versions[i].Clone())
	}
	return out
}

// Len reports how many versions the ledger holds.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.versions)
}
