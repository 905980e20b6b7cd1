// Package jsonfile implements the ledger store as a single JSON document
// on disk. It suits small deployments and development: the whole dataset
// loads at open, every mutation rewrites the file atomically via a temp
// file and rename, and an unreadable file is quarantined instead of
// crashing the bot.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/nutrobot/core/logger"
	"github.com/m3rciful/nutrobot/internal/domain"
)

const component = "store.json"

type userRecord struct {
	Profile  *domain.UserProfile           `json:"profile,omitempty"`
	Seq      int64                         `json:"seq"`
	Food     []domain.FoodEntry            `json:"food,omitempty"`
	Activity []domain.ActivityEntry        `json:"activity,omitempty"`
	Water    []domain.WaterEntry           `json:"water,omitempty"`
	Catalog  map[string]domain.CatalogItem `json:"catalog,omitempty"`
}

type fileData struct {
	Users map[string]*userRecord `json:"users"`
}

// Store keeps the dataset in memory and mirrors every mutation to disk.
// A single mutex guards the map; per-user serialization of conversation
// turns happens above the store, in the engine.
type Store struct {
	mu   sync.RWMutex
	path string
	data fileData
}

// Open loads the JSON store at path, creating parent directories as
// needed. A file that fails to parse is renamed aside with a .corrupted
// suffix and the store starts empty, mirroring how the bot always
// preferred losing history to refusing to start.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: fileData{Users: map[string]*userRecord{}}}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info(context.Background(), component, "store.create", slog.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		quarantine := fmt.Sprintf("%s.corrupted-%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, quarantine); renameErr != nil {
			return nil, fmt.Errorf("store file corrupted and rename failed: %w", renameErr)
		}
		logger.Warn(context.Background(), component, "store.quarantine",
			slog.String("path", path),
			slog.String("moved_to", quarantine),
			slog.String("err", err.Error()),
		)
		return s, nil
	}
	if data.Users == nil {
		data.Users = map[string]*userRecord{}
	}
	s.data = data
	logger.Info(context.Background(), component, "store.open",
		slog.String("path", path),
		slog.Int("users", len(data.Users)),
	)
	return s, nil
}

func key(userID int64) string { return strconv.FormatInt(userID, 10) }

func (s *Store) user(userID int64) *userRecord {
	rec, ok := s.data.Users[key(userID)]
	if !ok {
		rec = &userRecord{}
		s.data.Users[key(userID)] = rec
	}
	return rec
}

// persist writes the whole document with a temp file and rename so a
// crash mid-write never leaves a truncated store behind.
func (s *Store) persist() error {
	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write store tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// GetProfile returns the stored profile or domain.ErrProfileNotFound.
func (s *Store) GetProfile(_ context.Context, userID int64) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data.Users[key(userID)]
	if !ok || rec.Profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	p := *rec.Profile
	return &p, nil
}

// PutProfile inserts or replaces the user's profile.
func (s *Store) PutProfile(_ context.Context, p *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.user(p.UserID)
	prev := rec.Profile
	cp := *p
	rec.Profile = &cp
	if err := s.persist(); err != nil {
		rec.Profile = prev
		return err
	}
	return nil
}

// AppendFood assigns the next per-user sequence number and stores the
// entry. The user must already have a profile; appends for unknown users
// report domain.ErrProfileNotFound, which keeps every entry tied to an
// existing profile the same way the SQL backend's foreign key does.
func (s *Store) AppendFood(_ context.Context, e *domain.FoodEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data.Users[key(e.UserID)]
	if !ok || rec.Profile == nil {
		return 0, domain.ErrProfileNotFound
	}
	rec.Seq++
	cp := *e
	cp.Seq = rec.Seq
	rec.Food = append(rec.Food, cp)
	if err := s.persist(); err != nil {
		rec.Food = rec.Food[:len(rec.Food)-1]
		rec.Seq--
		return 0, err
	}
	e.Seq = cp.Seq
	return cp.Seq, nil
}

// RemoveLastFood pops the most recently recorded food entry.
func (s *Store) RemoveLastFood(_ context.Context, userID int64) (*domain.FoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data.Users[key(userID)]
	if !ok || len(rec.Food) == 0 {
		return nil, domain.ErrNoEntries
	}
	last := rec.Food[len(rec.Food)-1]
	rec.Food = rec.Food[:len(rec.Food)-1]
	if err := s.persist(); err != nil {
		rec.Food = append(rec.Food, last)
		return nil, err
	}
	return &last, nil
}

// LastFood returns the most recently recorded food entry without
// removing it.
func (s *Store) LastFood(_ context.Context, userID int64) (*domain.FoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data.Users[key(userID)]
	if !ok || len(rec.Food) == 0 {
		return nil, domain.ErrNoEntries
	}
	last := rec.Food[len(rec.Food)-1]
	return &last, nil
}

// ListFood returns the user's food entries with LoggedAt in [from, to),
// in recording order.
func (s *Store) ListFood(_ context.Context, userID int64, from, to time.Time) ([]domain.FoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data.Users[key(userID)]
	if !ok {
		return nil, nil
	}
	var out []domain.FoodEntry
	for _, e := range rec.Food {
		if inWindow(e.LoggedAt, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// AppendActivity assigns the next sequence number and stores the workout.
func (s *Store) AppendActivity(_ context.Context, e *domain.ActivityEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data.Users[key(e.UserID)]
	if !ok || rec.Profile == nil {
		return 0, domain.ErrProfileNotFound
	}
	rec.Seq++
	cp := *e
	cp.Seq = rec.Seq
	rec.Activity = append(rec.Activity, cp)
	if err := s.persist(); err != nil {
		rec.Activity = rec.Activity[:len(rec.Activity)-1]
		rec.Seq--
		return 0, err
	}
	e.Seq = cp.Seq
	return cp.Seq, nil
}

// ListActivity returns workouts with LoggedAt in [from, to).
func (s *Store) ListActivity(_ context.Context, userID int64, from, to time.Time) ([]domain.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data.Users[key(userID)]
	if !ok {
		return nil, nil
	}
	var out []domain.ActivityEntry
	for _, e := range rec.Activity {
		if inWindow(e.LoggedAt, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// AppendWater assigns the next sequence number and stores the intake.
func (s *Store) AppendWater(_ context.Context, e *domain.WaterEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data.Users[key(e.UserID)]
	if !ok || rec.Profile == nil {
		return 0, domain.ErrProfileNotFound
	}
	rec.Seq++
	cp := *e
	cp.Seq = rec.Seq
	rec.Water = append(rec.Water, cp)
	if err := s.persist(); err != nil {
		rec.Water = rec.Water[:len(rec.Water)-1]
		rec.Seq--
		return 0, err
	}
	e.Seq = cp.Seq
	return cp.Seq, nil
}

// ListWater returns water entries with LoggedAt in [from, to).
func (s *Store) ListWater(_ context.Context, userID int64, from, to time.Time) ([]domain.WaterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data.Users[key(userID)]
	if !ok {
		return nil, nil
	}
	var out []domain.WaterEntry
	for _, e := range rec.Water {
		if inWindow(e.LoggedAt, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// UpsertCatalogItem inserts or replaces a catalog item by its key. Catalog
// rows are allowed for users without a profile so the builtin table can be
// seeded under the reserved id.
func (s *Store) UpsertCatalogItem(_ context.Context, userID int64, item domain.CatalogItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.user(userID)
	if rec.Catalog == nil {
		rec.Catalog = map[string]domain.CatalogItem{}
	}
	prev, had := rec.Catalog[item.Key]
	rec.Catalog[item.Key] = item
	if err := s.persist(); err != nil {
		if had {
			rec.Catalog[item.Key] = prev
		} else {
			delete(rec.Catalog, item.Key)
		}
		return err
	}
	return nil
}

// ListCatalog returns the user's catalog items sorted by key.
func (s *Store) ListCatalog(_ context.Context, userID int64) ([]domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data.Users[key(userID)]
	if !ok || len(rec.Catalog) == 0 {
		return nil, nil
	}
	out := make([]domain.CatalogItem, 0, len(rec.Catalog))
	for _, item := range rec.Catalog {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Stats counts users with a profile and food entries across the store.
func (s *Store) Stats(_ context.Context) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st domain.Stats
	for _, rec := range s.data.Users {
		if rec.Profile != nil {
			st.Users++
		}
		st.FoodEntries += int64(len(rec.Food))
	}
	return st, nil
}

// Close is a no-op: every mutation is already on disk.
func (s *Store) Close() error { return nil }

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
