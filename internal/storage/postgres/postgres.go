// Package postgres implements the ledger store on PostgreSQL via sqlx.
// Sequence numbers come from a per-profile counter bumped with a single
// UPDATE ... RETURNING, so the profile row lock serializes appends for one
// user without blocking anyone else, and the entries' foreign key keeps
// every entry attached to an existing profile.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/nutrobot/internal/domain"
)

// Store is the PostgreSQL ledger backend.
type Store struct {
	db *sqlx.DB
}

// New wraps an already-connected pool; migrations are expected to have run.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type profileRow struct {
	UserID       int64     `db:"user_id"`
	CalorieGoal  int       `db:"calorie_goal"`
	ProteinGoalG float64   `db:"protein_goal_g"`
	FatGoalG     float64   `db:"fat_goal_g"`
	CarbGoalG    float64   `db:"carb_goal_g"`
	TZOffsetMin  int       `db:"tz_offset_min"`
	Units        string    `db:"units"`
	WeightKg     float64   `db:"weight_kg"`
	HeightCm     float64   `db:"height_cm"`
	Age          int       `db:"age"`
	ActivityMin  int       `db:"activity_min"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r profileRow) toDomain() *domain.UserProfile {
	return &domain.UserProfile{
		UserID:       r.UserID,
		CalorieGoal:  r.CalorieGoal,
		ProteinGoalG: r.ProteinGoalG,
		FatGoalG:     r.FatGoalG,
		CarbGoalG:    r.CarbGoalG,
		TZOffsetMin:  r.TZOffsetMin,
		Units:        r.Units,
		WeightKg:     r.WeightKg,
		HeightCm:     r.HeightCm,
		Age:          r.Age,
		ActivityMin:  r.ActivityMin,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type foodRow struct {
	UserID      int64     `db:"user_id"`
	Seq         int64     `db:"seq"`
	ID          string    `db:"id"`
	Label       string    `db:"label"`
	Calories    float64   `db:"calories"`
	ProteinG    float64   `db:"protein_g"`
	FatG        float64   `db:"fat_g"`
	CarbG       float64   `db:"carb_g"`
	Grams       float64   `db:"grams"`
	LoggedAt    time.Time `db:"logged_at"`
	TZOffsetMin int       `db:"tz_offset_min"`
	RecordedAt  time.Time `db:"recorded_at"`
}

func (r foodRow) toDomain() domain.FoodEntry {
	return domain.FoodEntry{
		UserID:      r.UserID,
		ID:          r.ID,
		Seq:         r.Seq,
		Label:       r.Label,
		Calories:    r.Calories,
		ProteinG:    r.ProteinG,
		FatG:        r.FatG,
		CarbG:       r.CarbG,
		Grams:       r.Grams,
		LoggedAt:    r.LoggedAt,
		TZOffsetMin: r.TZOffsetMin,
		RecordedAt:  r.RecordedAt,
	}
}

type activityRow struct {
	UserID      int64     `db:"user_id"`
	Seq         int64     `db:"seq"`
	Kind        string    `db:"kind"`
	Minutes     int       `db:"minutes"`
	BurnedKcal  float64   `db:"burned_kcal"`
	LoggedAt    time.Time `db:"logged_at"`
	TZOffsetMin int       `db:"tz_offset_min"`
	RecordedAt  time.Time `db:"recorded_at"`
}

type waterRow struct {
	UserID      int64     `db:"user_id"`
	Seq         int64     `db:"seq"`
	Milliliters int       `db:"milliliters"`
	LoggedAt    time.Time `db:"logged_at"`
	TZOffsetMin int       `db:"tz_offset_min"`
	RecordedAt  time.Time `db:"recorded_at"`
}

type catalogRow struct {
	UserID        int64     `db:"user_id"`
	Key           string    `db:"key"`
	Name          string    `db:"name"`
	KcalPer100    float64   `db:"kcal_per_100"`
	ProteinPer100 float64   `db:"protein_per_100"`
	FatPer100     float64   `db:"fat_per_100"`
	CarbPer100    float64   `db:"carb_per_100"`
	ServingGrams  *float64  `db:"serving_grams"`
	Source        string    `db:"source"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const profileColumns = `user_id, calorie_goal, protein_goal_g, fat_goal_g, carb_goal_g,
	tz_offset_min, units, weight_kg, height_cm, age, activity_min, created_at, updated_at`

// GetProfile returns the stored profile or domain.ErrProfileNotFound.
func (s *Store) GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	var row profileRow
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return row.toDomain(), nil
}

// PutProfile inserts or replaces the user's profile, preserving last_seq.
func (s *Store) PutProfile(ctx context.Context, p *domain.UserProfile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO UPDATE SET
			calorie_goal = EXCLUDED.calorie_goal,
			protein_goal_g = EXCLUDED.protein_goal_g,
			fat_goal_g = EXCLUDED.fat_goal_g,
			carb_goal_g = EXCLUDED.carb_goal_g,
			tz_offset_min = EXCLUDED.tz_offset_min,
			units = EXCLUDED.units,
			weight_kg = EXCLUDED.weight_kg,
			height_cm = EXCLUDED.height_cm,
			age = EXCLUDED.age,
			activity_min = EXCLUDED.activity_min,
			updated_at = EXCLUDED.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		p.UserID, p.CalorieGoal, p.ProteinGoalG, p.FatGoalG, p.CarbGoalG,
		p.TZOffsetMin, p.Units, p.WeightKg, p.HeightCm, p.Age, p.ActivityMin,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// nextSeq bumps the per-user counter; the profile row lock makes
// concurrent appends for the same user queue up behind each other.
func nextSeq(ctx context.Context, tx *sqlx.Tx, userID int64) (int64, error) {
	var seq int64
	err := tx.GetContext(ctx, &seq,
		`UPDATE profiles SET last_seq = last_seq + 1 WHERE user_id = $1 RETURNING last_seq`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrProfileNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// AppendFood assigns the next sequence number and inserts the entry.
func (s *Store) AppendFood(ctx context.Context, e *domain.FoodEntry) (int64, error) {
	var seq int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if seq, err = nextSeq(ctx, tx, e.UserID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO food_entries (user_id, seq, id, label, calories, protein_g, fat_g, carb_g,
				grams, logged_at, tz_offset_min, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			e.UserID, seq, e.ID, e.Label, e.Calories, e.ProteinG, e.FatG, e.CarbG,
			e.Grams, e.LoggedAt, e.TZOffsetMin, e.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("insert food entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.Seq = seq
	return seq, nil
}

// RemoveLastFood deletes and returns the entry with the highest sequence
// number, or domain.ErrNoEntries when the user has none.
func (s *Store) RemoveLastFood(ctx context.Context, userID int64) (*domain.FoodEntry, error) {
	var row foodRow
	query := `
		DELETE FROM food_entries
		WHERE user_id = $1
		  AND seq = (SELECT max(seq) FROM food_entries WHERE user_id = $1)
		RETURNING user_id, seq, id, label, calories, protein_g, fat_g, carb_g,
			grams, logged_at, tz_offset_min, recorded_at`
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoEntries
		}
		return nil, fmt.Errorf("delete last food entry: %w", err)
	}
	e := row.toDomain()
	return &e, nil
}

// LastFood returns the entry with the highest sequence number without
// removing it, or domain.ErrNoEntries.
func (s *Store) LastFood(ctx context.Context, userID int64) (*domain.FoodEntry, error) {
	var row foodRow
	query := `
		SELECT user_id, seq, id, label, calories, protein_g, fat_g, carb_g,
			grams, logged_at, tz_offset_min, recorded_at
		FROM food_entries
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT 1`
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoEntries
		}
		return nil, fmt.Errorf("select last food entry: %w", err)
	}
	e := row.toDomain()
	return &e, nil
}

// ListFood returns food entries with logged_at in [from, to).
func (s *Store) ListFood(ctx context.Context, userID int64, from, to time.Time) ([]domain.FoodEntry, error) {
	var rows []foodRow
	query := `
		SELECT user_id, seq, id, label, calories, protein_g, fat_g, carb_g,
			grams, logged_at, tz_offset_min, recorded_at
		FROM food_entries
		WHERE user_id = $1 AND logged_at >= $2 AND logged_at < $3
		ORDER BY seq`
	if err := s.db.SelectContext(ctx, &rows, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("select food entries: %w", err)
	}
	out := make([]domain.FoodEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// AppendActivity assigns the next sequence number and inserts the workout.
func (s *Store) AppendActivity(ctx context.Context, e *domain.ActivityEntry) (int64, error) {
	var seq int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if seq, err = nextSeq(ctx, tx, e.UserID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO activity_entries (user_id, seq, kind, minutes, burned_kcal,
				logged_at, tz_offset_min, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.UserID, seq, e.Kind, e.Minutes, e.BurnedKcal, e.LoggedAt, e.TZOffsetMin, e.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("insert activity entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.Seq = seq
	return seq, nil
}

// ListActivity returns workouts with logged_at in [from, to).
func (s *Store) ListActivity(ctx context.Context, userID int64, from, to time.Time) ([]domain.ActivityEntry, error) {
	var rows []activityRow
	query := `
		SELECT user_id, seq, kind, minutes, burned_kcal, logged_at, tz_offset_min, recorded_at
		FROM activity_entries
		WHERE user_id = $1 AND logged_at >= $2 AND logged_at < $3
		ORDER BY seq`
	if err := s.db.SelectContext(ctx, &rows, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("select activity entries: %w", err)
	}
	out := make([]domain.ActivityEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ActivityEntry{
			UserID: r.UserID, Seq: r.Seq, Kind: r.Kind, Minutes: r.Minutes,
			BurnedKcal: r.BurnedKcal, LoggedAt: r.LoggedAt,
			TZOffsetMin: r.TZOffsetMin, RecordedAt: r.RecordedAt,
		})
	}
	return out, nil
}

// AppendWater assigns the next sequence number and inserts the intake.
func (s *Store) AppendWater(ctx context.Context, e *domain.WaterEntry) (int64, error) {
	var seq int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if seq, err = nextSeq(ctx, tx, e.UserID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO water_entries (user_id, seq, milliliters, logged_at, tz_offset_min, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.UserID, seq, e.Milliliters, e.LoggedAt, e.TZOffsetMin, e.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("insert water entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.Seq = seq
	return seq, nil
}

// ListWater returns water entries with logged_at in [from, to).
func (s *Store) ListWater(ctx context.Context, userID int64, from, to time.Time) ([]domain.WaterEntry, error) {
	var rows []waterRow
	query := `
		SELECT user_id, seq, milliliters, logged_at, tz_offset_min, recorded_at
		FROM water_entries
		WHERE user_id = $1 AND logged_at >= $2 AND logged_at < $3
		ORDER BY seq`
	if err := s.db.SelectContext(ctx, &rows, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("select water entries: %w", err)
	}
	out := make([]domain.WaterEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.WaterEntry{
			UserID: r.UserID, Seq: r.Seq, Milliliters: r.Milliliters,
			LoggedAt: r.LoggedAt, TZOffsetMin: r.TZOffsetMin, RecordedAt: r.RecordedAt,
		})
	}
	return out, nil
}

// UpsertCatalogItem inserts or replaces a catalog item keyed by
// (user_id, key). The builtin table lives under the reserved user id, so
// there is deliberately no foreign key to profiles here.
func (s *Store) UpsertCatalogItem(ctx context.Context, userID int64, item domain.CatalogItem) error {
	query := `
		INSERT INTO catalog_items (user_id, key, name, kcal_per_100, protein_per_100,
			fat_per_100, carb_per_100, serving_grams, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, key) DO UPDATE SET
			name = EXCLUDED.name,
			kcal_per_100 = EXCLUDED.kcal_per_100,
			protein_per_100 = EXCLUDED.protein_per_100,
			fat_per_100 = EXCLUDED.fat_per_100,
			carb_per_100 = EXCLUDED.carb_per_100,
			serving_grams = EXCLUDED.serving_grams,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		userID, item.Key, item.Name, item.KcalPer100, item.ProteinPer100,
		item.FatPer100, item.CarbPer100, item.ServingGrams, item.Source, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert catalog item: %w", err)
	}
	return nil
}

// ListCatalog returns the user's catalog items ordered by key.
func (s *Store) ListCatalog(ctx context.Context, userID int64) ([]domain.CatalogItem, error) {
	var rows []catalogRow
	query := `
		SELECT user_id, key, name, kcal_per_100, protein_per_100, fat_per_100,
			carb_per_100, serving_grams, source, updated_at
		FROM catalog_items
		WHERE user_id = $1
		ORDER BY key`
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("select catalog items: %w", err)
	}
	out := make([]domain.CatalogItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.CatalogItem{
			Key: r.Key, Name: r.Name, KcalPer100: r.KcalPer100,
			ProteinPer100: r.ProteinPer100, FatPer100: r.FatPer100, CarbPer100: r.CarbPer100,
			ServingGrams: r.ServingGrams, Source: r.Source, UpdatedAt: r.UpdatedAt,
		})
	}
	return out, nil
}

// Stats counts profiles and food entries.
func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	var st domain.Stats
	if err := s.db.GetContext(ctx, &st.Users, `SELECT count(*) FROM profiles`); err != nil {
		return st, fmt.Errorf("count profiles: %w", err)
	}
	if err := s.db.GetContext(ctx, &st.FoodEntries, `SELECT count(*) FROM food_entries`); err != nil {
		return st, fmt.Errorf("count food entries: %w", err)
	}
	return st, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }
