package sessionapi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

func TestLocalRunsPlanToCompletion(t *testing.T) {
	ctx := context.Background()
	api := NewLocal()

	start, err := api.Start(ctx, "", "strict")
	if err != nil {
		t.Fatal(err)
	}
	if start.FirstQuestion == nil || start.FirstQuestion.Index != 0 || start.Progress.Total != 3 {
		t.Fatalf("start = %+v", start)
	}
	if _, err := api.SubmitAnswer(ctx, start.SessionID, "early", 1); !apperrors.IsCode(err, apperrors.InvalidPhase) {
		t.Fatalf("answer before consent = %v, want INVALID_PHASE", err)
	}
	if err := api.ConfirmConsent(ctx, start.SessionID); err != nil {
		t.Fatal(err)
	}

	res, err := api.SubmitAnswer(ctx, start.SessionID, "two pointers", 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsComplete || res.NextQuestion.Index != 1 {
		t.Fatalf("first answer result = %+v", res)
	}
	if res, err = api.Skip(ctx, start.SessionID); err != nil || res.NextQuestion.Index != 2 {
		t.Fatalf("skip = %+v, %v", res, err)
	}
	res, err = api.SubmitAnswer(ctx, start.SessionID, "we talked it through", 20)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsComplete || res.NextQuestion != nil || res.Progress.Answered != 3 {
		t.Fatalf("last answer result = %+v", res)
	}
	if _, err := api.SubmitAnswer(ctx, start.SessionID, "again", 1); !apperrors.IsCode(err, apperrors.AlreadyAnswered) {
		t.Errorf("answer after completion = %v, want ALREADY_ANSWERED", err)
	}

	answers := api.Answers(start.SessionID)
	if len(answers) != 3 || answers[1] != "" {
		t.Errorf("answers = %q", answers)
	}
}

func TestLocalPauseAndEnd(t *testing.T) {
	ctx := context.Background()
	api := NewLocal()
	start, _ := api.Start(ctx, "default", "friendly")
	_ = api.ConfirmConsent(ctx, start.SessionID)

	if err := api.Pause(ctx, start.SessionID); err != nil {
		t.Fatal(err)
	}
	if _, err := api.Skip(ctx, start.SessionID); !apperrors.IsCode(err, apperrors.InvalidPhase) {
		t.Errorf("skip while paused = %v, want INVALID_PHASE", err)
	}
	if err := api.Resume(ctx, start.SessionID); err != nil {
		t.Fatal(err)
	}
	if err := api.End(ctx, start.SessionID); err != nil {
		t.Fatal(err)
	}
	if err := api.Resume(ctx, start.SessionID); !apperrors.IsCode(err, apperrors.InvalidPhase) {
		t.Errorf("resume after end = %v, want INVALID_PHASE", err)
	}
	if err := api.Pause(ctx, "missing"); !apperrors.IsCode(err, apperrors.NotFound) {
		t.Errorf("unknown session = %v, want NOT_FOUND", err)
	}
}

func TestLoadPlans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	data := `
- id: backend
  greeting: Hello.
  questions:
    - id: a
      text: What is a goroutine?
      category: Technical
    - id: b
      text: Tell me about a conflict.
      category: Behavioral
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	plans, err := LoadPlans(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 1 || len(plans[0].Questions) != 2 || plans[0].Questions[1].Category != "Behavioral" {
		t.Fatalf("plans = %+v", plans)
	}

	api := NewLocal(plans...)
	start, _ := api.Start(context.Background(), "backend", "strict")
	if start.Greeting != "Hello." || start.FirstQuestion.ID != "a" {
		t.Errorf("start = %+v", start)
	}
}

func TestLoadPlansRejectsEmptyPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	if err := os.WriteFile(path, []byte("- id: empty\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPlans(path); err == nil {
		t.Error("plan without questions should be rejected")
	}
}
