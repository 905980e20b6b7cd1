package domain

import "time"

// Unit preference values stored on a profile.
const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"
)

// Catalog item sources.
const (
	SourceUser    = "user"
	SourceBuiltin = "builtin"
)

// UserProfile holds per-user goals and capture settings. It is created with
// defaults on the first interaction and mutated only through the profile
// conversation. Body stats are optional (zero means unset) and feed the
// calorie-goal suggestion and the workout/water math.
type UserProfile struct {
	UserID       int64     `json:"user_id"`
	CalorieGoal  int       `json:"calorie_goal"`
	ProteinGoalG float64   `json:"protein_goal_g"`
	FatGoalG     float64   `json:"fat_goal_g"`
	CarbGoalG    float64   `json:"carb_goal_g"`
	TZOffsetMin  int       `json:"tz_offset_min"`
	Units        string    `json:"units"`
	WeightKg     float64   `json:"weight_kg,omitempty"`
	HeightCm     float64   `json:"height_cm,omitempty"`
	Age          int       `json:"age,omitempty"`
	ActivityMin  int       `json:"activity_min,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultProfile returns the profile a user starts with before any edits.
func DefaultProfile(userID int64, now time.Time) *UserProfile {
	return &UserProfile{
		UserID:      userID,
		CalorieGoal: 2000,
		Units:       UnitsMetric,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
}

// ProfileUpdate carries a partial profile edit. Nil fields are left
// untouched by the merge.
type ProfileUpdate struct {
	CalorieGoal  *int
	ProteinGoalG *float64
	FatGoalG     *float64
	CarbGoalG    *float64
	TZOffsetMin  *int
	Units        *string
	WeightKg     *float64
	HeightCm     *float64
	Age          *int
	ActivityMin  *int
}

// IsEmpty reports whether the update carries no fields at all.
func (u ProfileUpdate) IsEmpty() bool {
	return u.CalorieGoal == nil && u.ProteinGoalG == nil && u.FatGoalG == nil &&
		u.CarbGoalG == nil && u.TZOffsetMin == nil && u.Units == nil &&
		u.WeightKg == nil && u.HeightCm == nil && u.Age == nil && u.ActivityMin == nil
}

// FoodEntry is one logged food item. Calories and macros are a snapshot
// computed at capture time; TZOffsetMin is the profile's offset when the
// entry was recorded and decides which civil day the entry belongs to,
// regardless of later profile edits. Seq orders entries per user in
// recording order and exists only to support undo.
type FoodEntry struct {
	UserID      int64     `json:"user_id"`
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	Label       string    `json:"label"`
	Calories    float64   `json:"calories"`
	ProteinG    float64   `json:"protein_g"`
	FatG        float64   `json:"fat_g"`
	CarbG       float64   `json:"carb_g"`
	Grams       float64   `json:"grams"`
	LoggedAt    time.Time `json:"logged_at"`
	TZOffsetMin int       `json:"tz_offset_min"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ActivityEntry is one logged workout with its estimated energy burn.
type ActivityEntry struct {
	UserID      int64     `json:"user_id"`
	Seq         int64     `json:"seq"`
	Kind        string    `json:"kind"`
	Minutes     int       `json:"minutes"`
	BurnedKcal  float64   `json:"burned_kcal"`
	LoggedAt    time.Time `json:"logged_at"`
	TZOffsetMin int       `json:"tz_offset_min"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// WaterEntry is one logged water intake.
type WaterEntry struct {
	UserID      int64     `json:"user_id"`
	Seq         int64     `json:"seq"`
	Milliliters int       `json:"milliliters"`
	LoggedAt    time.Time `json:"logged_at"`
	TZOffsetMin int       `json:"tz_offset_min"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// CatalogItem is a saved food with per-100g nutrition, either user-defined
// or shipped as a builtin starter. ServingGrams is optional and lets piece
// counts ("2 pcs") resolve to grams.
type CatalogItem struct {
	Key           string    `json:"key"`
	Name          string    `json:"name"`
	KcalPer100    float64   `json:"kcal_per_100"`
	ProteinPer100 float64   `json:"protein_per_100"`
	FatPer100     float64   `json:"fat_per_100"`
	CarbPer100    float64   `json:"carb_per_100"`
	ServingGrams  *float64  `json:"serving_grams,omitempty"`
	Source        string    `json:"source"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DailyAggregate is the derived summary for one civil day. It is always
// recomputed from entries, never stored. Delta compares consumed calories
// against the profile goal (positive means over); NetKcal additionally
// subtracts workout burn.
type DailyAggregate struct {
	Day         time.Time
	Calories    float64
	ProteinG    float64
	FatG        float64
	CarbG       float64
	Entries     int
	CalorieGoal int
	Delta       float64
	BurnedKcal  float64
	NetKcal     float64
	WaterML     int
	WaterGoalML int
}

// Stats is a storage-wide snapshot used by the admin stats command.
type Stats struct {
	Users       int64
	FoodEntries int64
}
