package testsupport

import (
	"context"
	"testing"

	"reactir/internal/config"
	"reactir/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustEnsureRun creates the dimension chain named by cfg.Run.
func MustEnsureRun(t testing.TB, st *store.Store, cfg *config.Config) store.Run {
	t.Helper()

	run, err := st.EnsureRun(context.Background(), store.RunContext{
		User:       cfg.Run.User,
		Project:    cfg.Run.Project,
		Experiment: cfg.Run.Experiment,
		Document:   cfg.Run.Document,
		RunID:      "test-run",
	})
	if err != nil {
		t.Fatalf("store.EnsureRun: %v", err)
	}
	return run
}
