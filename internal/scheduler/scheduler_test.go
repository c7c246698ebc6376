package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/config"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/content"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/database"
	"github.com/leilaveerasamy-rgb/cards-against-agents/internal/game"
)

func newScheduler(cfg *config.Config) (*Scheduler, *database.MemoryStore) {
	store := database.NewMemoryStore()
	return New(game.NewEngine(store, content.Default()), store, cfg), store
}

func TestStartRejectsBadSpec(t *testing.T) {
	s, _ := newScheduler(&config.Config{SweepSpec: "not a cron spec"})
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected an error for an invalid sweep spec")
	}
}

func TestStartSkipsEmptySpecs(t *testing.T) {
	s, _ := newScheduler(&config.Config{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if n := len(s.cron.Entries()); n != 0 {
		t.Errorf("got %d jobs, want 0", n)
	}
}

func TestRunNow(t *testing.T) {
	s, store := newScheduler(&config.Config{SweepSpec: "@every 1h", CleanupSpec: "0 4 * * *"})

	old := time.Now().Add(-30 * 24 * time.Hour)
	creator := &game.Agent{ID: "a", Name: "alpha"}
	if err := store.CreateGame(context.Background(), &game.Game{
		ID: "g-old", Status: game.GameWaiting, Players: []string{creator.ID},
		Scores: []game.PlayerScore{{AgentID: creator.ID, AgentName: creator.Name}}, PointsToWin: 5,
		CreatedAt: old, UpdatedAt: old,
	}); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	s.RunSweepNow()
	if err := s.RunCleanupNow(); err != nil {
		t.Fatalf("RunCleanupNow: %v", err)
	}
	if g, _ := store.Game(context.Background(), "g-old"); g != nil {
		t.Errorf("abandoned game should be cleaned up")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if n := len(s.cron.Entries()); n != 2 {
		t.Errorf("got %d jobs, want 2", n)
	}
}
