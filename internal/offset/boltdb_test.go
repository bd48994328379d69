package offset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SteelMorgan/lpreserver-watcher/internal/domain"
)

func newTestStore(t *testing.T) *BoltDBStore {
	t.Helper()
	s, err := NewBoltDBStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewBoltDBStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltDBStore_Offsets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.Get(ctx, SourcePrimary, "/var/log/lpreserver/lpreserver.log")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != 0 {
		t.Errorf("Get() on empty store = %d, want 0", got)
	}

	if err := s.Set(ctx, SourcePrimary, "/var/log/lpreserver/lpreserver.log", 4096); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err = s.Get(ctx, SourcePrimary, "/var/log/lpreserver/lpreserver.log")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != 4096 {
		t.Errorf("Get() = %d, want 4096", got)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all["primary:/var/log/lpreserver/lpreserver.log"] != 4096 {
		t.Errorf("List() = %v", all)
	}

	if err := s.Delete(ctx, SourcePrimary, "/var/log/lpreserver/lpreserver.log"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, _ = s.Get(ctx, SourcePrimary, "/var/log/lpreserver/lpreserver.log")
	if got != 0 {
		t.Errorf("Get() after Delete() = %d, want 0", got)
	}
}

func TestBoltDBStore_Status(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	records := map[domain.Category]domain.Fields{
		domain.CategoryMessage: {
			domain.FieldID:      "SNAPCREATED",
			domain.FieldDataset: "tank1",
		},
	}
	if err := s.SaveStatus(ctx, records); err != nil {
		t.Fatalf("SaveStatus() error = %v", err)
	}

	loaded, err := s.LoadStatus(ctx)
	if err != nil {
		t.Fatalf("LoadStatus() error = %v", err)
	}
	if loaded[domain.CategoryMessage][domain.FieldDataset] != "tank1" {
		t.Errorf("LoadStatus() = %v", loaded)
	}
	if _, ok := loaded[domain.CategoryRunning]; ok {
		t.Error("unexpected running record")
	}
}

func TestBoltDBStore_ActiveProgress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SetActiveProgress(ctx, "/var/log/lpreserver/lps-tank1.log"); err != nil {
		t.Fatalf("SetActiveProgress() error = %v", err)
	}
	got, err := s.ActiveProgress(ctx)
	if err != nil {
		t.Fatalf("ActiveProgress() error = %v", err)
	}
	if got != "/var/log/lpreserver/lps-tank1.log" {
		t.Errorf("ActiveProgress() = %q", got)
	}

	if err := s.SetActiveProgress(ctx, ""); err != nil {
		t.Fatalf("SetActiveProgress(\"\") error = %v", err)
	}
	if got, _ := s.ActiveProgress(ctx); got != "" {
		t.Errorf("ActiveProgress() after clear = %q, want empty", got)
	}
}

func TestNewBoltDBStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := NewBoltDBStore(path)
	if err != nil {
		t.Fatalf("NewBoltDBStore() error = %v", err)
	}
	if err := s.Set(ctx, SourcePrimary, "a.log", 12); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.Close()

	s, err = NewBoltDBStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if got, _ := s.Get(ctx, SourcePrimary, "a.log"); got != 12 {
		t.Errorf("Get() after reopen = %d, want 12", got)
	}
}
