package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/ufakz/architectai/internal/domain"
)

type fakeRefiner struct {
	calls int
	out   []byte
	err   error
}

func (f *fakeRefiner) Refine(_ context.Context, images [][]byte) ([]byte, error) {
	f.calls++
	return f.out, f.err
}

type fakeAnalyzer struct {
	calls int
	out   []InferredComponent
	err   error
}

func (f *fakeAnalyzer) Components(_ context.Context, image []byte) ([]InferredComponent, error) {
	f.calls++
	return f.out, f.err
}

type fakePlanner struct {
	calls int
	out   string
	err   error
}

func (f *fakePlanner) Plan(_ context.Context, image []byte, specs []domain.ComponentSpec) (string, error) {
	f.calls++
	return f.out, f.err
}

func TestProcessNoImagesFailsValidation(t *testing.T) {
	refiner := &fakeRefiner{}
	analyzer := &fakeAnalyzer{}
	o := &Orchestrator{Refiner: refiner, Analyzer: analyzer}

	var transitions []domain.VersionStatus
	_, err := o.Process(context.Background(), [][]byte{nil, {}}, func(s domain.VersionStatus) {
		transitions = append(transitions, s)
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if refiner.calls != 0 || analyzer.calls != 0 {
		t.Fatalf("external calls made: refine=%d analyze=%d", refiner.calls, analyzer.calls)
	}
	if len(transitions) != 0 {
		t.Fatalf("transitions = %v, want none", transitions)
	}
}

func TestProcessSuccess(t *testing.T) {
	refiner := &fakeRefiner{out: []byte{0xAA}}
	analyzer := &fakeAnalyzer{out: []InferredComponent{
		{Name: "API Gateway", Description: "routes requests"},
		{Name: "Queue", Description: "buffers work"},
	}}
	o := &Orchestrator{Refiner: refiner, Analyzer: analyzer}

	var transitions []domain.VersionStatus
	res, err := o.Process(context.Background(), [][]byte{{1}}, func(s domain.VersionStatus) {
		transitions = append(transitions, s)
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := []domain.VersionStatus{domain.StatusRefining, domain.StatusSpecifying, domain.StatusComplete}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
	if len(res.RefinedImage) != 1 {
		t.Fatalf("refined image = %v", res.RefinedImage)
	}
	if len(res.Specs) != 2 {
		t.Fatalf("specs = %+v", res.Specs)
	}
	seen := map[string]bool{}
	for _, s := range res.Specs {
		if s.ID == "" {
			t.Fatalf("spec %q has no id", s.Name)
		}
		if seen[s.ID] {
			t.Fatalf("duplicate spec id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Notes != "" {
			t.Fatalf("spec %q has non-empty notes", s.Name)
		}
	}
}

func TestProcessRefineFailure(t *testing.T) {
	refiner := &fakeRefiner{err: errors.New("model unavailable")}
	analyzer := &fakeAnalyzer{}
	o := &Orchestrator{Refiner: refiner, Analyzer: analyzer}

	var transitions []domain.VersionStatus
	_, err := o.Process(context.Background(), [][]byte{{1}}, func(s domain.VersionStatus) {
		transitions = append(transitions, s)
	})

	var serr *ExternalServiceError
	if !errors.As(err, &serr) || serr.Stage != StageRefine {
		t.Fatalf("error = %v, want refine ExternalServiceError", err)
	}
	if analyzer.calls != 0 {
		t.Fatal("analyzer called after refine failure")
	}
	last := transitions[len(transitions)-1]
	if last != domain.StatusError {
		t.Fatalf("last transition = %q, want error", last)
	}
}

func TestProcessAnalyzeFailure(t *testing.T) {
	refiner := &fakeRefiner{out: []byte{1}}
	analyzer := &fakeAnalyzer{err: errors.New("bad payload")}
	o := &Orchestrator{Refiner: refiner, Analyzer: analyzer}

	_, err := o.Process(context.Background(), [][]byte{{1}}, nil)
	var serr *ExternalServiceError
	if !errors.As(err, &serr) || serr.Stage != StageSpecify {
		t.Fatalf("error = %v, want specify ExternalServiceError", err)
	}
}

func TestProcessTimeoutKind(t *testing.T) {
	refiner := &fakeRefiner{err: context.DeadlineExceeded}
	o := &Orchestrator{Refiner: refiner, Analyzer: &fakeAnalyzer{}}

	_, err := o.Process(context.Background(), [][]byte{{1}}, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
}

func TestGeneratePlan(t *testing.T) {
	planner := &fakePlanner{out: "# Implementation Plan"}
	o := &Orchestrator{Planner: planner}

	plan, err := o.GeneratePlan(context.Background(), []byte{1}, []domain.ComponentSpec{{ID: "s1", Name: "API", Notes: "must be gRPC"}})
	if err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}
	if plan != "# Implementation Plan" {
		t.Fatalf("plan = %q", plan)
	}

	planner.err = errors.New("quota exceeded")
	if _, err := o.GeneratePlan(context.Background(), []byte{1}, nil); err == nil {
		t.Fatal("expected error")
	}
}
