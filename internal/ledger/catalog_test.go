package ledger

import (
	"context"
	"testing"

	"github.com/m3rciful/nutrobot/internal/domain"
	"github.com/m3rciful/nutrobot/internal/storage"
)

func TestNormalizeKey(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Apple", "apple"},
		{"  Greek   Yogurt  ", "greek yogurt"},
		{"chicken-breast, grilled!", "chicken breast grilled"},
		{"a piece of bread", "bread"},
		{"2 eggs", "2 eggs"},
		{"crème brûlée", "crème brûlée"},
		{"...", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.in); got != tc.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchScore(t *testing.T) {
	if got := MatchScore("apple", "apple"); got != 100 {
		t.Errorf("exact match score = %d, want 100", got)
	}
	// One edit over five runes.
	if got := MatchScore("aple", "apple"); got != 80 {
		t.Errorf("typo score = %d, want 80", got)
	}
	if got := MatchScore("chicken brest", "chicken breast"); got < AutoAcceptScore {
		t.Errorf("near miss score = %d, want >= %d", got, AutoAcceptScore)
	}
	if got := MatchScore("banana", "apple"); got >= MatchThreshold {
		t.Errorf("unrelated score = %d, want < %d", got, MatchThreshold)
	}
}

func TestLookupFoodExactAndFuzzy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.SeedBuiltinCatalog(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m, err := svc.LookupFood(ctx, 21, "Apple")
	if err != nil {
		t.Fatalf("LookupFood: %v", err)
	}
	if m == nil || !m.Exact || m.Score != 100 || m.Item.KcalPer100 != 52 {
		t.Fatalf("exact lookup wrong: %+v", m)
	}

	m, err = svc.LookupFood(ctx, 21, "aple")
	if err != nil {
		t.Fatalf("LookupFood: %v", err)
	}
	if m == nil || m.Exact || m.Item.Key != "apple" {
		t.Fatalf("fuzzy lookup wrong: %+v", m)
	}
	if m.Score < MatchThreshold || m.Score >= AutoAcceptScore {
		t.Fatalf("fuzzy score %d outside the hedged band", m.Score)
	}

	m, err = svc.LookupFood(ctx, 21, "margarita pizza")
	if err != nil {
		t.Fatalf("LookupFood: %v", err)
	}
	if m != nil {
		t.Fatalf("unknown food matched %+v", m)
	}

	m, err = svc.LookupFood(ctx, 21, "!!!")
	if err != nil || m != nil {
		t.Fatalf("punctuation-only query: m=%+v err=%v", m, err)
	}
}

func TestLookupFoodUserShadowsBuiltin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.SeedBuiltinCatalog(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	saved, err := svc.SaveCatalogItem(ctx, 22, domain.CatalogItem{Name: "Apple", KcalPer100: 60})
	if err != nil {
		t.Fatalf("SaveCatalogItem: %v", err)
	}
	if saved.Key != "apple" || saved.Source != domain.SourceUser {
		t.Fatalf("saved item not normalized: %+v", saved)
	}

	m, err := svc.LookupFood(ctx, 22, "apple")
	if err != nil {
		t.Fatalf("LookupFood: %v", err)
	}
	if m == nil || m.Item.KcalPer100 != 60 || m.Item.Source != domain.SourceUser {
		t.Fatalf("user item did not shadow builtin: %+v", m)
	}

	other, err := svc.LookupFood(ctx, 23, "apple")
	if err != nil {
		t.Fatalf("LookupFood: %v", err)
	}
	if other == nil || other.Item.KcalPer100 != 52 {
		t.Fatalf("other users must still see the builtin item: %+v", other)
	}
}

func TestSaveCatalogItemValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	serving0 := 0.0
	cases := []struct {
		name string
		item domain.CatalogItem
	}{
		{"empty name", domain.CatalogItem{KcalPer100: 50}},
		{"zero kcal", domain.CatalogItem{Name: "air", KcalPer100: 0}},
		{"oversized kcal", domain.CatalogItem{Name: "lard", KcalPer100: 2500}},
		{"protein over 100g", domain.CatalogItem{Name: "x ray", KcalPer100: 100, ProteinPer100: 150}},
		{"zero serving", domain.CatalogItem{Name: "dust", KcalPer100: 100, ServingGrams: &serving0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SaveCatalogItem(ctx, 24, tc.item); !domain.IsValidation(err) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}
}

func TestSeedBuiltinCatalogIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.SeedBuiltinCatalog(ctx); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := svc.SeedBuiltinCatalog(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	items, err := svc.store.ListCatalog(ctx, storage.BuiltinUserID)
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if len(items) != len(builtinFoods) {
		t.Fatalf("seeding twice changed the table: %d items, want %d", len(items), len(builtinFoods))
	}
}
