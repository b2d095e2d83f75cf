package testsupport

import (
	"context"
	"testing"

	"longbox/internal/config"
	"longbox/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewCollection creates a collection for tests using the provided store.
func NewCollection(t testing.TB, st *store.Store, name, folderPath string) *store.Collection {
	t.Helper()

	collection, err := st.AddCollection(context.Background(), name, folderPath)
	if err != nil {
		t.Fatalf("store.AddCollection: %v", err)
	}
	return collection
}
