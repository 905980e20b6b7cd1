package ledger

import (
	"context"
	"log/slog"

	"github.com/m3rciful/nutrobot/core/logger"
	"github.com/m3rciful/nutrobot/internal/domain"
	"github.com/m3rciful/nutrobot/internal/storage"
)

func serving(g float64) *float64 { return &g }

// builtinFoods is the starter table seeded under the reserved user id so
// common foods resolve without the user teaching the bot first. Values
// are per 100 g.
var builtinFoods = []domain.CatalogItem{
	{Name: "Apple", KcalPer100: 52, ProteinPer100: 0.3, FatPer100: 0.2, CarbPer100: 14, ServingGrams: serving(180)},
	{Name: "Banana", KcalPer100: 89, ProteinPer100: 1.1, FatPer100: 0.3, CarbPer100: 23, ServingGrams: serving(120)},
	{Name: "Cucumber", KcalPer100: 15, ProteinPer100: 0.7, FatPer100: 0.1, CarbPer100: 3.6, ServingGrams: serving(100)},
	{Name: "Tomato", KcalPer100: 20, ProteinPer100: 0.9, FatPer100: 0.2, CarbPer100: 3.9, ServingGrams: serving(120)},
	{Name: "Chicken breast", KcalPer100: 165, ProteinPer100: 31, FatPer100: 3.6, CarbPer100: 0, ServingGrams: serving(150)},
	{Name: "Egg", KcalPer100: 155, ProteinPer100: 13, FatPer100: 11, CarbPer100: 1.1, ServingGrams: serving(55)},
	{Name: "White rice cooked", KcalPer100: 130, ProteinPer100: 2.7, FatPer100: 0.3, CarbPer100: 28, ServingGrams: serving(150)},
	{Name: "Buckwheat cooked", KcalPer100: 110, ProteinPer100: 3.6, FatPer100: 1.1, CarbPer100: 21, ServingGrams: serving(150)},
	{Name: "Oatmeal cooked", KcalPer100: 71, ProteinPer100: 2.5, FatPer100: 1.5, CarbPer100: 12, ServingGrams: serving(200)},
	{Name: "Cottage cheese 2%", KcalPer100: 103, ProteinPer100: 18, FatPer100: 2, CarbPer100: 3.4, ServingGrams: serving(100)},
	{Name: "Greek yogurt 2%", KcalPer100: 80, ProteinPer100: 8, FatPer100: 2, CarbPer100: 5, ServingGrams: serving(150)},
	{Name: "White bread", KcalPer100: 265, ProteinPer100: 9, FatPer100: 3.2, CarbPer100: 49, ServingGrams: serving(25)},
	{Name: "Milk 2.5%", KcalPer100: 52, ProteinPer100: 2.8, FatPer100: 2.5, CarbPer100: 4.7, ServingGrams: serving(250)},
	{Name: "Pasta cooked", KcalPer100: 158, ProteinPer100: 5.8, FatPer100: 0.9, CarbPer100: 31, ServingGrams: serving(150)},
	{Name: "Boiled potato", KcalPer100: 87, ProteinPer100: 1.9, FatPer100: 0.1, CarbPer100: 20, ServingGrams: serving(150)},
	{Name: "Salmon", KcalPer100: 208, ProteinPer100: 20, FatPer100: 13, CarbPer100: 0, ServingGrams: serving(140)},
}

// SeedBuiltinCatalog writes the starter foods under the reserved builtin
// id. Re-running is harmless; items are keyed upserts.
func (s *Service) SeedBuiltinCatalog(ctx context.Context) error {
	for _, item := range builtinFoods {
		item.Key = NormalizeKey(item.Name)
		item.Source = domain.SourceBuiltin
		item.UpdatedAt = s.now().UTC()
		if err := s.store.UpsertCatalogItem(ctx, storage.BuiltinUserID, item); err != nil {
			return domain.WrapStorage("seed_catalog", err)
		}
	}
	logger.Info(ctx, "db.seed", "catalog.seed", slog.Int("items", len(builtinFoods)))
	return nil
}
