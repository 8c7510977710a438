package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{from: StatusPending, to: StatusProcessing, want: true},
		{from: StatusPending, to: StatusFailed, want: true},
		{from: StatusProcessing, to: StatusCompleted, want: true},
		{from: StatusProcessing, to: StatusFailed, want: true},
		{from: StatusPending, to: StatusCompleted, want: false},
		{from: StatusCompleted, to: StatusProcessing, want: false},
		{from: StatusFailed, to: StatusCompleted, want: false},
		{from: StatusProcessing, to: StatusPending, want: false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestMemoryRepoLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	created := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	if err := repo.Create(ctx, Job{ID: "job-1", ApplicationID: 42, Status: StatusPending, TotalCost: decimal.Zero, CreatedAt: created}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	started := created.Add(time.Second)
	job, err := repo.Transition(ctx, "job-1", StatusPending, StatusProcessing, started, nil)
	if err != nil {
		t.Fatalf("Transition to processing: %v", err)
	}
	if job.StartedAt == nil || !job.StartedAt.Equal(started) {
		t.Fatalf("expected started_at, got %+v", job)
	}

	// A second worker racing on the same job loses the compare-and-set.
	if _, err := repo.Transition(ctx, "job-1", StatusPending, StatusProcessing, started, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	done := started.Add(time.Minute)
	job, err = repo.Transition(ctx, "job-1", StatusProcessing, StatusCompleted, done, func(j *Job) {
		j.ProviderUsed = "groq"
		j.TotalTokens = 700
		j.DocumentsGenerated = 7
	})
	if err != nil {
		t.Fatalf("Transition to completed: %v", err)
	}
	if job.CompletedAt == nil || job.ProviderUsed != "groq" || job.DocumentsGenerated != 7 {
		t.Fatalf("unexpected completed job: %+v", job)
	}

	if _, err := repo.Transition(ctx, "job-1", StatusCompleted, StatusFailed, done, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("terminal status must not change, got %v", err)
	}
	if _, err := repo.Transition(ctx, "missing", StatusPending, StatusProcessing, done, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoLatestForApplication(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, Job{ID: id, ApplicationID: 42, Status: StatusPending, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := repo.Create(ctx, Job{ID: "other", ApplicationID: 7, Status: StatusPending, CreatedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	latest, err := repo.LatestForApplication(ctx, 42)
	if err != nil {
		t.Fatalf("LatestForApplication: %v", err)
	}
	if latest.ID != "c" {
		t.Fatalf("expected latest job c, got %s", latest.ID)
	}
	if _, err := repo.LatestForApplication(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
