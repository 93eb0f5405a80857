package retention

import (
	"context"
	"testing"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records/storage"
)

func TestScheduler_StartStop(t *testing.T) {
	p := NewPruner(storage.NewMemoryStorage(), config.RetentionConfig{
		Days:          30,
		PruneSchedule: "0 3 * * *",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.scheduler.IsRunning() {
		t.Error("scheduler should be running")
	}

	next := p.NextPruning()
	if next == nil {
		t.Fatal("NextPruning() = nil")
	}
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("NextPruning() = %v, want 03:00", next)
	}

	if err := p.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}

	p.Stop()
	if p.scheduler.IsRunning() {
		t.Error("scheduler should be stopped")
	}
	p.Stop()
}

func TestScheduler_EmptySchedule(t *testing.T) {
	p := NewPruner(storage.NewMemoryStorage(), config.RetentionConfig{Days: 30})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p.scheduler.IsRunning() {
		t.Error("scheduler should not run without a schedule")
	}
	if p.NextPruning() != nil {
		t.Error("NextPruning() should be nil")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	p := NewPruner(storage.NewMemoryStorage(), config.RetentionConfig{PruneSchedule: "every tuesday"})
	if err := p.Start(context.Background()); err == nil {
		t.Error("Start() should reject an invalid cron expression")
	}
}
