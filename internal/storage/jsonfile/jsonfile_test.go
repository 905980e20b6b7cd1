package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m3rciful/nutrobot/internal/domain"
)

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "data", "ledger.json")
}

func mustProfile(t *testing.T, s *Store, userID int64) {
	t.Helper()
	p := domain.DefaultProfile(userID, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	if err := s.PutProfile(context.Background(), p); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}
}

func TestReopenKeepsDataAndSequence(t *testing.T) {
	ctx := context.Background()
	path := testPath(t)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustProfile(t, s, 7)
	seq, err := s.AppendFood(ctx, &domain.FoodEntry{
		UserID:   7,
		ID:       "a",
		Label:    "banana",
		Calories: 133.5,
		Grams:    150,
		LoggedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AppendFood: %v", err)
	}
	if seq != 1 {
		t.Fatalf("first seq = %d, want 1", seq)
	}
	if err := s.UpsertCatalogItem(ctx, 7, domain.CatalogItem{Key: "banana", Name: "banana", KcalPer100: 89, Source: domain.SourceUser}); err != nil {
		t.Fatalf("UpsertCatalogItem: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	p, err := reopened.GetProfile(ctx, 7)
	if err != nil {
		t.Fatalf("GetProfile after reopen: %v", err)
	}
	if p.CalorieGoal != 2000 {
		t.Fatalf("profile goal = %d, want 2000", p.CalorieGoal)
	}
	last, err := reopened.LastFood(ctx, 7)
	if err != nil {
		t.Fatalf("LastFood after reopen: %v", err)
	}
	if last.Label != "banana" || last.Seq != 1 {
		t.Fatalf("last entry = %q seq %d, want banana seq 1", last.Label, last.Seq)
	}
	items, err := reopened.ListCatalog(ctx, 7)
	if err != nil || len(items) != 1 {
		t.Fatalf("ListCatalog after reopen: %v items, err %v", len(items), err)
	}

	// The sequence counter must survive the restart, not restart at 1.
	seq, err = reopened.AppendFood(ctx, &domain.FoodEntry{UserID: 7, ID: "b", Label: "egg", Calories: 170, Grams: 110, LoggedAt: time.Now()})
	if err != nil {
		t.Fatalf("AppendFood after reopen: %v", err)
	}
	if seq != 2 {
		t.Fatalf("seq after reopen = %d, want 2", seq)
	}
}

func TestSequenceSharedAcrossEntryKinds(t *testing.T) {
	ctx := context.Background()
	s, err := Open(testPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustProfile(t, s, 3)

	now := time.Now().UTC()
	s1, err := s.AppendFood(ctx, &domain.FoodEntry{UserID: 3, ID: "x", Label: "rice", Calories: 130, Grams: 100, LoggedAt: now})
	if err != nil {
		t.Fatalf("AppendFood: %v", err)
	}
	s2, err := s.AppendActivity(ctx, &domain.ActivityEntry{UserID: 3, Kind: "run", Minutes: 30, LoggedAt: now})
	if err != nil {
		t.Fatalf("AppendActivity: %v", err)
	}
	s3, err := s.AppendWater(ctx, &domain.WaterEntry{UserID: 3, Milliliters: 300, LoggedAt: now})
	if err != nil {
		t.Fatalf("AppendWater: %v", err)
	}
	if s1 != 1 || s2 != 2 || s3 != 3 {
		t.Fatalf("seqs = %d,%d,%d, want 1,2,3", s1, s2, s3)
	}
}

func TestAppendWithoutProfileRejected(t *testing.T) {
	ctx := context.Background()
	s, err := Open(testPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = s.AppendFood(ctx, &domain.FoodEntry{UserID: 42, ID: "x", Label: "toast", Calories: 80, Grams: 30, LoggedAt: time.Now()})
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestRemoveLastFoodOnEmpty(t *testing.T) {
	s, err := Open(testPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustProfile(t, s, 5)
	_, err = s.RemoveLastFood(context.Background(), 5)
	if !errors.Is(err, domain.ErrNoEntries) {
		t.Fatalf("err = %v, want ErrNoEntries", err)
	}
}

func TestListFoodWindowIsHalfOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(testPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustProfile(t, s, 9)

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	for _, at := range []time.Time{from.Add(-time.Second), from, to.Add(-time.Second), to} {
		if _, err := s.AppendFood(ctx, &domain.FoodEntry{UserID: 9, ID: at.String(), Label: "x", Calories: 1, Grams: 1, LoggedAt: at}); err != nil {
			t.Fatalf("AppendFood: %v", err)
		}
	}

	got, err := s.ListFood(ctx, 9, from, to)
	if err != nil {
		t.Fatalf("ListFood: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries in window = %d, want 2 (start inclusive, end exclusive)", len(got))
	}
}

func TestCorruptedFileQuarantined(t *testing.T) {
	path := testPath(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on corrupted file: %v", err)
	}

	// The broken file is moved aside, not overwritten in place.
	matches, err := filepath.Glob(path + ".corrupted-*")
	if err != nil || len(matches) != 1 {
		t.Fatalf("quarantine files = %v, err %v, want exactly one", matches, err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("original path still present: %v", err)
	}

	// And the store works from scratch afterwards.
	mustProfile(t, s, 1)
	if _, err := s.GetProfile(context.Background(), 1); err != nil {
		t.Fatalf("GetProfile after quarantine: %v", err)
	}
}

func TestStatsCountsProfilesAndEntries(t *testing.T) {
	ctx := context.Background()
	s, err := Open(testPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustProfile(t, s, 1)
	mustProfile(t, s, 2)
	if _, err := s.AppendFood(ctx, &domain.FoodEntry{UserID: 1, ID: "a", Label: "x", Calories: 1, Grams: 1, LoggedAt: time.Now()}); err != nil {
		t.Fatalf("AppendFood: %v", err)
	}
	// Catalog rows under the reserved builtin id must not count as users.
	if err := s.UpsertCatalogItem(ctx, 0, domain.CatalogItem{Key: "rice", Name: "rice", KcalPer100: 130, Source: domain.SourceBuiltin}); err != nil {
		t.Fatalf("UpsertCatalogItem: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Users != 2 || st.FoodEntries != 1 {
		t.Fatalf("stats = %+v, want 2 users / 1 entry", st)
	}
}
