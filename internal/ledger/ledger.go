// Package ledger owns the nutrition ledger: entry lifecycle, profile
// management and on-demand aggregation. It validates everything before it
// touches storage, wraps storage failures into the shared error taxonomy
// and never retries them; retry policy belongs to callers.
package ledger

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/nutrobot/core/logger"
	"github.com/m3rciful/nutrobot/internal/calc"
	"github.com/m3rciful/nutrobot/internal/domain"
	"github.com/m3rciful/nutrobot/internal/storage"
)

const component = "service.ledger"

// Input bounds shared with the conversation layer. They match what the
// bot always accepted: hard caps that keep typos from becoming
// memorable ledger rows.
const (
	MaxCalorieGoal  = 10000
	MaxMacroGoalG   = 2000
	MaxWeightKg     = 400
	MaxHeightCm     = 260
	MaxAge          = 120
	MaxActivityMin  = 1440
	MaxKcalPer100   = 2000
	MaxGrams        = 5000
	MaxServingGrams = 2000
	MaxWaterML      = 5000
	MaxWorkoutMin   = 1000
	MaxRangeDays    = 365
)

// Service implements ledger operations over a storage backend.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// New builds a ledger service on top of the given store.
func New(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// EnsureProfile returns the user's profile, creating the default one on
// first contact so every later entry has a profile to reference.
func (s *Service) EnsureProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !domain.IsNotFound(err) {
		return nil, domain.WrapStorage("get_profile", err)
	}
	p = domain.DefaultProfile(userID, s.now())
	if err := s.store.PutProfile(ctx, p); err != nil {
		return nil, domain.WrapStorage("create_profile", err)
	}
	logger.Info(ctx, component, "profile.create", slog.Int64("user_id", userID))
	return p, nil
}

// Profile returns the stored profile without creating one.
func (s *Service) Profile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, domain.WrapStorage("get_profile", err)
	}
	return p, nil
}

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RecordEntry validates and persists one food entry, returning its stable
// id. The profile is ensured first so the entry always references one.
func (s *Service) RecordEntry(ctx context.Context, userID int64, e domain.FoodEntry) (string, error) {
	e.Label = strings.TrimSpace(e.Label)
	switch {
	case e.Label == "":
		return "", domain.NewValidation("label", "must not be empty")
	case !validNumber(e.Calories) || e.Calories < 0:
		return "", domain.NewValidation("calories", "must be a non-negative number")
	case !validNumber(e.ProteinG) || e.ProteinG < 0:
		return "", domain.NewValidation("protein", "must be a non-negative number")
	case !validNumber(e.FatG) || e.FatG < 0:
		return "", domain.NewValidation("fat", "must be a non-negative number")
	case !validNumber(e.CarbG) || e.CarbG < 0:
		return "", domain.NewValidation("carbs", "must be a non-negative number")
	case !validNumber(e.Grams) || e.Grams <= 0 || e.Grams > MaxGrams:
		return "", domain.NewValidation("grams", "must be within 1..5000")
	}

	profile, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return "", err
	}

	e.UserID = userID
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = s.now()
	}
	e.LoggedAt = e.LoggedAt.UTC()
	// The capture offset is the profile's offset right now. Later profile
	// edits must not move this entry to another day.
	e.TZOffsetMin = profile.TZOffsetMin
	e.RecordedAt = s.now().UTC()

	seq, err := s.store.AppendFood(ctx, &e)
	if err != nil {
		return "", domain.WrapStorage("append_food", err)
	}
	logger.Info(ctx, component, "entry.record",
		slog.Int64("user_id", userID),
		slog.Int64("seq", seq),
		slog.String("entry_id", e.ID),
		slog.Float64("calories", e.Calories),
	)
	return e.ID, nil
}

// UndoLast removes and returns the most recently recorded food entry,
// ordered by recording sequence rather than event timestamp.
func (s *Service) UndoLast(ctx context.Context, userID int64) (*domain.FoodEntry, error) {
	e, err := s.store.RemoveLastFood(ctx, userID)
	if err != nil {
		return nil, domain.WrapStorage("remove_last_food", err)
	}
	logger.Info(ctx, component, "entry.undo",
		slog.Int64("user_id", userID),
		slog.Int64("seq", e.Seq),
		slog.String("entry_id", e.ID),
	)
	return e, nil
}

// LastEntry peeks at the most recent food entry without removing it, so
// the undo confirmation can show what is about to go away.
func (s *Service) LastEntry(ctx context.Context, userID int64) (*domain.FoodEntry, error) {
	e, err := s.store.LastFood(ctx, userID)
	if err != nil {
		return nil, domain.WrapStorage("last_food", err)
	}
	return e, nil
}

// UpdateProfile merges only the provided fields into the profile,
// validating each one, and returns the stored result.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, u domain.ProfileUpdate) (*domain.UserProfile, error) {
	if u.IsEmpty() {
		return s.EnsureProfile(ctx, userID)
	}
	if err := validateUpdate(u); err != nil {
		return nil, err
	}
	p, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	applyUpdate(p, u)
	p.UpdatedAt = s.now().UTC()
	if err := s.store.PutProfile(ctx, p); err != nil {
		return nil, domain.WrapStorage("put_profile", err)
	}
	logger.Info(ctx, component, "profile.update", slog.Int64("user_id", userID))
	return p, nil
}

func validateUpdate(u domain.ProfileUpdate) error {
	if u.CalorieGoal != nil && (*u.CalorieGoal <= 0 || *u.CalorieGoal > MaxCalorieGoal) {
		return domain.NewValidation("calorie_goal", "must be within 1..10000")
	}
	for _, m := range []struct {
		name string
		val  *float64
	}{
		{"protein_goal", u.ProteinGoalG},
		{"fat_goal", u.FatGoalG},
		{"carb_goal", u.CarbGoalG},
	} {
		if m.val != nil && (!validNumber(*m.val) || *m.val < 0 || *m.val > MaxMacroGoalG) {
			return domain.NewValidation(m.name, "must be within 0..2000")
		}
	}
	if u.TZOffsetMin != nil && (*u.TZOffsetMin < domain.MinTZOffsetMin || *u.TZOffsetMin > domain.MaxTZOffsetMin) {
		return domain.NewValidation("timezone", "must be within UTC-12..UTC+14")
	}
	if u.Units != nil && *u.Units != domain.UnitsMetric && *u.Units != domain.UnitsImperial {
		return domain.NewValidation("units", "must be metric or imperial")
	}
	if u.WeightKg != nil && (!validNumber(*u.WeightKg) || *u.WeightKg <= 0 || *u.WeightKg > MaxWeightKg) {
		return domain.NewValidation("weight", "must be within 1..400 kg")
	}
	if u.HeightCm != nil && (!validNumber(*u.HeightCm) || *u.HeightCm <= 0 || *u.HeightCm > MaxHeightCm) {
		return domain.NewValidation("height", "must be within 1..260 cm")
	}
	if u.Age != nil && (*u.Age <= 0 || *u.Age > MaxAge) {
		return domain.NewValidation("age", "must be within 1..120")
	}
	if u.ActivityMin != nil && (*u.ActivityMin < 0 || *u.ActivityMin > MaxActivityMin) {
		return domain.NewValidation("activity", "must be within 0..1440 minutes")
	}
	return nil
}

func applyUpdate(p *domain.UserProfile, u domain.ProfileUpdate) {
	if u.CalorieGoal != nil {
		p.CalorieGoal = *u.CalorieGoal
	}
	if u.ProteinGoalG != nil {
		p.ProteinGoalG = *u.ProteinGoalG
	}
	if u.FatGoalG != nil {
		p.FatGoalG = *u.FatGoalG
	}
	if u.CarbGoalG != nil {
		p.CarbGoalG = *u.CarbGoalG
	}
	if u.TZOffsetMin != nil {
		p.TZOffsetMin = *u.TZOffsetMin
	}
	if u.Units != nil {
		p.Units = *u.Units
	}
	if u.WeightKg != nil {
		p.WeightKg = *u.WeightKg
	}
	if u.HeightCm != nil {
		p.HeightCm = *u.HeightCm
	}
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.ActivityMin != nil {
		p.ActivityMin = *u.ActivityMin
	}
}

// RecordActivity validates and persists a workout, computing the burned
// calories from the profile's weight. A profile without a weight still
// logs the workout, just with a zero burn estimate.
func (s *Service) RecordActivity(ctx context.Context, userID int64, kind string, minutes int, at time.Time) (*domain.ActivityEntry, error) {
	kind = strings.TrimSpace(kind)
	if len(kind) < 2 {
		return nil, domain.NewValidation("workout", "name the workout, e.g. run or yoga")
	}
	if minutes <= 0 || minutes > MaxWorkoutMin {
		return nil, domain.NewValidation("minutes", "must be within 1..1000")
	}
	profile, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = s.now()
	}
	e := domain.ActivityEntry{
		UserID:      userID,
		Kind:        kind,
		Minutes:     minutes,
		BurnedKcal:  calc.BurnedCalories(kind, minutes, profile.WeightKg),
		LoggedAt:    at.UTC(),
		TZOffsetMin: profile.TZOffsetMin,
		RecordedAt:  s.now().UTC(),
	}
	if _, err := s.store.AppendActivity(ctx, &e); err != nil {
		return nil, domain.WrapStorage("append_activity", err)
	}
	logger.Info(ctx, component, "activity.record",
		slog.Int64("user_id", userID),
		slog.String("kind", kind),
		slog.Int("minutes", minutes),
		slog.Float64("burned_kcal", e.BurnedKcal),
	)
	return &e, nil
}

// RecordWater validates and persists a water intake.
func (s *Service) RecordWater(ctx context.Context, userID int64, ml int, at time.Time) (*domain.WaterEntry, error) {
	if ml <= 0 || ml > MaxWaterML {
		return nil, domain.NewValidation("water", "must be within 1..5000 ml")
	}
	profile, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = s.now()
	}
	e := domain.WaterEntry{
		UserID:      userID,
		Milliliters: ml,
		LoggedAt:    at.UTC(),
		TZOffsetMin: profile.TZOffsetMin,
		RecordedAt:  s.now().UTC(),
	}
	if _, err := s.store.AppendWater(ctx, &e); err != nil {
		return nil, domain.WrapStorage("append_water", err)
	}
	logger.Info(ctx, component, "water.record",
		slog.Int64("user_id", userID),
		slog.Int("milliliters", ml),
	)
	return &e, nil
}

// Stats exposes storage-wide counters for the admin command.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return st, domain.WrapStorage("stats", err)
	}
	return st, nil
}
