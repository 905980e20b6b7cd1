package ledger

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/m3rciful/nutrobot/core/logger"
	"github.com/m3rciful/nutrobot/internal/domain"
	"github.com/m3rciful/nutrobot/internal/storage"
)

// Fuzzy match thresholds, in percent. Below MatchThreshold a lookup is a
// miss; at AutoAcceptScore and above (or on an exact key hit) the match
// is taken without hedging in the reply.
const (
	MatchThreshold  = 70
	AutoAcceptScore = 85
)

// Filler words dropped during normalization so "a piece of bread" and
// "bread" land on the same catalog key.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "with": {}, "and": {}, "or": {},
	"in": {}, "on": {}, "no": {}, "pack": {}, "packet": {},
	"pc": {}, "pcs": {}, "piece": {}, "pieces": {},
}

// NormalizeKey reduces a food name to its catalog key: lowercase, letters
// and digits only, filler words dropped, single spaces.
func NormalizeKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	parts := strings.Fields(b.String())
	kept := parts[:0]
	for _, p := range parts {
		if _, skip := stopWords[p]; !skip {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// levenshtein is the classic two-row edit distance.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// MatchScore rates the similarity of two normalized keys in percent.
func MatchScore(query, candidate string) int {
	if query == candidate {
		return 100
	}
	longest := len([]rune(query))
	if l := len([]rune(candidate)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	score := 100 * (longest - levenshtein(query, candidate)) / longest
	if score < 0 {
		return 0
	}
	return score
}

// Match is a catalog lookup result.
type Match struct {
	Item  domain.CatalogItem
	Score int
	Exact bool
}

// LookupFood resolves a free-text food name against the user's catalog
// merged over the builtin table (user items shadow builtin ones by key).
// Returns nil when nothing clears the match threshold.
func (s *Service) LookupFood(ctx context.Context, userID int64, query string) (*Match, error) {
	norm := NormalizeKey(query)
	if norm == "" {
		return nil, nil
	}
	merged, err := s.mergedCatalog(ctx, userID)
	if err != nil {
		return nil, err
	}

	if item, ok := merged[norm]; ok {
		return &Match{Item: item, Score: 100, Exact: true}, nil
	}
	var best *Match
	for key, item := range merged {
		score := MatchScore(norm, key)
		if score < MatchThreshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &Match{Item: item, Score: score}
		}
	}
	if best != nil {
		logger.Debug(ctx, "service.catalog", "catalog.fuzzy_match",
			slog.Int64("user_id", userID),
			slog.String("query", norm),
			slog.String("matched", best.Item.Key),
			slog.Int("score", best.Score),
		)
	}
	return best, nil
}

func (s *Service) mergedCatalog(ctx context.Context, userID int64) (map[string]domain.CatalogItem, error) {
	builtin, err := s.store.ListCatalog(ctx, storage.BuiltinUserID)
	if err != nil {
		return nil, domain.WrapStorage("list_catalog", err)
	}
	own, err := s.store.ListCatalog(ctx, userID)
	if err != nil {
		return nil, domain.WrapStorage("list_catalog", err)
	}
	merged := make(map[string]domain.CatalogItem, len(builtin)+len(own))
	for _, item := range builtin {
		merged[item.Key] = item
	}
	for _, item := range own {
		merged[item.Key] = item
	}
	return merged, nil
}

// SaveCatalogItem validates and upserts a personal catalog item, so the
// next time the user names that food the macros are already known.
func (s *Service) SaveCatalogItem(ctx context.Context, userID int64, item domain.CatalogItem) (domain.CatalogItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Key == "" {
		item.Key = NormalizeKey(item.Name)
	}
	switch {
	case item.Key == "" || item.Name == "":
		return item, domain.NewValidation("food", "name must not be empty")
	case !validNumber(item.KcalPer100) || item.KcalPer100 <= 0 || item.KcalPer100 > MaxKcalPer100:
		return item, domain.NewValidation("kcal", "kcal per 100 g must be within 1..2000")
	case !validNumber(item.ProteinPer100) || item.ProteinPer100 < 0 || item.ProteinPer100 > 100:
		return item, domain.NewValidation("protein", "grams per 100 g must be within 0..100")
	case !validNumber(item.FatPer100) || item.FatPer100 < 0 || item.FatPer100 > 100:
		return item, domain.NewValidation("fat", "grams per 100 g must be within 0..100")
	case !validNumber(item.CarbPer100) || item.CarbPer100 < 0 || item.CarbPer100 > 100:
		return item, domain.NewValidation("carbs", "grams per 100 g must be within 0..100")
	}
	if item.ServingGrams != nil && (!validNumber(*item.ServingGrams) || *item.ServingGrams <= 0 || *item.ServingGrams > MaxServingGrams) {
		return item, domain.NewValidation("serving", "grams per piece must be within 1..2000")
	}
	if item.Source == "" {
		item.Source = domain.SourceUser
	}
	item.UpdatedAt = s.now().UTC()
	if err := s.store.UpsertCatalogItem(ctx, userID, item); err != nil {
		return item, domain.WrapStorage("upsert_catalog", err)
	}
	logger.Info(ctx, "service.catalog", "catalog.save",
		slog.Int64("user_id", userID),
		slog.String("key", item.Key),
	)
	return item, nil
}
