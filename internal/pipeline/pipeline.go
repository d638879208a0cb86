// Package pipeline drives one version's artifact production: raw sketches in,
// refined image plus component specs out, with a status transition emitted at
// every stage boundary so the caller always knows which stage failed.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ufakz/architectai/internal/domain"
)

// Refiner synthesizes a single refined architecture image from N sketches.
type Refiner interface {
	Refine(ctx context.Context, images [][]byte) ([]byte, error)
}

// InferredComponent is one component as returned by the analysis call,
// before the orchestrator assigns it an identity.
type InferredComponent struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Analyzer extracts a component list from one refined image.
type Analyzer interface {
	Components(ctx context.Context, image []byte) ([]InferredComponent, error)
}

// Planner produces an implementation document from a refined image and the
// component specs, including the user's notes.
type Planner interface {
	Plan(ctx context.Context, image []byte, specs []domain.ComponentSpec) (string, error)
}

const defaultStageTimeout = 2 * time.Minute

// Orchestrator runs the refine -> specify pipeline. It never retries: a
// failed stage is terminal for the version, and retry means the caller
// creates a new version from the same diagrams.
type Orchestrator struct {
	Refiner  Refiner
	Analyzer Analyzer
	Planner  Planner

	// StageTimeout bounds each external call. Zero means the default.
	StageTimeout time.Duration
}

// Result is the terminal output of a successful pipeline run.
type Result struct {
	RefinedImage []byte
	Specs        []domain.ComponentSpec
}

func (o *Orchestrator) stageTimeout() time.Duration {
	if o.StageTimeout > 0 {
		return o.StageTimeout
	}
	return defaultStageTimeout
}

// Process runs the two pipeline stages over images, calling onTransition at
// every status change. Empty image entries are ignored; if none remain, it
// fails with a ValidationError before any external call or transition.
func (o *Orchestrator) Process(ctx context.Context, images [][]byte, onTransition func(domain.VersionStatus)) (Result, error) {
	if onTransition == nil {
		onTransition = func(domain.VersionStatus) {}
	}
	usable := make([][]byte, 0, len(images))
	for _, img := range images {
		if len(img) > 0 {
			usable = append(usable, img)
		}
	}
	if len(usable) == 0 {
		return Result{}, &ValidationError{Reason: "no usable sketch provided"}
	}

	onTransition(domain.StatusRefining)
	refined, err := o.callRefine(ctx, usable)
	if err != nil {
		onTransition(domain.StatusError)
		return Result{}, stageError(StageRefine, err)
	}

	onTransition(domain.StatusSpecifying)
	inferred, err := o.callAnalyze(ctx, refined)
	if err != nil {
		onTransition(domain.StatusError)
		return Result{}, stageError(StageSpecify, err)
	}

	specs := make([]domain.ComponentSpec, 0, len(inferred))
	for _, c := range inferred {
		specs = append(specs, domain.ComponentSpec{
			ID:          uuid.NewString(),
			Name:        c.Name,
			Description: c.Description,
		})
	}

	onTransition(domain.StatusComplete)
	return Result{RefinedImage: refined, Specs: specs}, nil
}

// GeneratePlan is the independently invokable build-plan step. The caller is
// expected to cache a successful result onto the owning version so repeat
// views do not re-invoke the external service.
func (o *Orchestrator) GeneratePlan(ctx context.Context, refined []byte, specs []domain.ComponentSpec) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout())
	defer cancel()
	plan, err := o.Planner.Plan(ctx, refined, specs)
	if err != nil {
		return "", stageError(StagePlan, err)
	}
	return plan, nil
}

func (o *Orchestrator) callRefine(ctx context.Context, images [][]byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout())
	defer cancel()
	return o.Refiner.Refine(ctx, images)
}

func (o *Orchestrator) callAnalyze(ctx context.Context, image []byte) ([]InferredComponent, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout())
	defer cancel()
	return o.Analyzer.Components(ctx, image)
}
