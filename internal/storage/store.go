// Package storage defines the persistence contract for the nutrition
// ledger: keyed per-user records with a profile, ordered entries carrying
// per-user sequence numbers, and the food catalog. Backends are pure
// persistence; validation, aggregation and error wrapping live in the
// ledger service on top.
package storage

import (
	"context"
	"time"

	"github.com/m3rciful/nutrobot/internal/domain"
)

// BuiltinUserID is the reserved key the built-in starter catalog is stored
// under. Real Telegram user ids are always positive.
const BuiltinUserID int64 = 0

// Store is implemented by every ledger backend. Append methods assign and
// return the per-user sequence number; the sequence is shared across entry
// kinds and only ever increases for a user. List methods filter by the
// entry's LoggedAt instant, half-open [from, to), and return entries in
// recording order. Lookups that find nothing return the domain's
// not-found sentinels; any other error is an I/O failure for the caller
// to wrap.
type Store interface {
	GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error)
	PutProfile(ctx context.Context, p *domain.UserProfile) error

	AppendFood(ctx context.Context, e *domain.FoodEntry) (int64, error)
	RemoveLastFood(ctx context.Context, userID int64) (*domain.FoodEntry, error)
	LastFood(ctx context.Context, userID int64) (*domain.FoodEntry, error)
	ListFood(ctx context.Context, userID int64, from, to time.Time) ([]domain.FoodEntry, error)

	AppendActivity(ctx context.Context, e *domain.ActivityEntry) (int64, error)
	ListActivity(ctx context.Context, userID int64, from, to time.Time) ([]domain.ActivityEntry, error)

	AppendWater(ctx context.Context, e *domain.WaterEntry) (int64, error)
	ListWater(ctx context.Context, userID int64, from, to time.Time) ([]domain.WaterEntry, error)

	UpsertCatalogItem(ctx context.Context, userID int64, item domain.CatalogItem) error
	ListCatalog(ctx context.Context, userID int64) ([]domain.CatalogItem, error)

	Stats(ctx context.Context) (domain.Stats, error)
	Close() error
}
