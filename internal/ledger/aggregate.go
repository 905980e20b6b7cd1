package ledger

import (
	"context"
	"time"

	"github.com/m3rciful/nutrobot/internal/calc"
	"github.com/m3rciful/nutrobot/internal/domain"
)

// utcWindow widens a civil-day range into the UTC instant range that can
// contain its entries: an entry lands on day D under offset o when its
// instant is in [D-o, D+24h-o), so the union over all real offsets is
// [start-14h, end+24h+12h). The precise per-entry filter happens against
// each entry's captured offset afterwards.
func utcWindow(start, end time.Time) (time.Time, time.Time) {
	from := start.Add(-time.Duration(domain.MaxTZOffsetMin) * time.Minute)
	to := end.Add(24 * time.Hour).Add(-time.Duration(domain.MinTZOffsetMin) * time.Minute)
	return from, to
}

// DailyTotals computes the aggregate for one civil day. It is a pure
// read: a missing profile falls back to defaults without creating one.
func (s *Service) DailyTotals(ctx context.Context, userID int64, day time.Time) (domain.DailyAggregate, error) {
	aggs, err := s.RangeTotals(ctx, userID, day, day)
	if err != nil {
		return domain.DailyAggregate{}, err
	}
	return aggs[0], nil
}

// RangeTotals computes one aggregate per civil day from start to end
// inclusive. Days with no entries yield zero aggregates and are never
// omitted; trend rendering relies on the sequence being dense.
func (s *Service) RangeTotals(ctx context.Context, userID int64, start, end time.Time) ([]domain.DailyAggregate, error) {
	start = domain.DayOf(start, 0)
	end = domain.DayOf(end, 0)
	if end.Before(start) {
		return nil, domain.NewValidation("range", "end day is before start day")
	}
	if domain.DaysBetween(start, end) > MaxRangeDays {
		return nil, domain.NewValidation("range", "must cover at most 365 days")
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if !domain.IsNotFound(err) {
			return nil, domain.WrapStorage("get_profile", err)
		}
		profile = domain.DefaultProfile(userID, s.now())
	}

	from, to := utcWindow(start, end)
	foods, err := s.store.ListFood(ctx, userID, from, to)
	if err != nil {
		return nil, domain.WrapStorage("list_food", err)
	}
	activities, err := s.store.ListActivity(ctx, userID, from, to)
	if err != nil {
		return nil, domain.WrapStorage("list_activity", err)
	}
	waters, err := s.store.ListWater(ctx, userID, from, to)
	if err != nil {
		return nil, domain.WrapStorage("list_water", err)
	}

	byDay := make(map[time.Time]*domain.DailyAggregate)
	bucket := func(day time.Time) *domain.DailyAggregate {
		if agg, ok := byDay[day]; ok {
			return agg
		}
		agg := &domain.DailyAggregate{Day: day}
		byDay[day] = agg
		return agg
	}

	for _, e := range foods {
		day := domain.DayOf(e.LoggedAt, e.TZOffsetMin)
		if day.Before(start) || day.After(end) {
			continue
		}
		agg := bucket(day)
		agg.Calories += e.Calories
		agg.ProteinG += e.ProteinG
		agg.FatG += e.FatG
		agg.CarbG += e.CarbG
		agg.Entries++
	}
	for _, e := range activities {
		day := domain.DayOf(e.LoggedAt, e.TZOffsetMin)
		if day.Before(start) || day.After(end) {
			continue
		}
		agg := bucket(day)
		agg.BurnedKcal += e.BurnedKcal
		agg.WaterGoalML += calc.WorkoutExtraWaterML(e.Minutes)
	}
	for _, e := range waters {
		day := domain.DayOf(e.LoggedAt, e.TZOffsetMin)
		if day.Before(start) || day.After(end) {
			continue
		}
		bucket(day).WaterML += e.Milliliters
	}

	baseWater := calc.WaterGoalML(profile.WeightKg, profile.ActivityMin)
	out := make([]domain.DailyAggregate, 0, domain.DaysBetween(start, end))
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		agg := domain.DailyAggregate{Day: d}
		if found, ok := byDay[d]; ok {
			agg = *found
		}
		agg.CalorieGoal = profile.CalorieGoal
		agg.Delta = agg.Calories - float64(profile.CalorieGoal)
		agg.NetKcal = agg.Calories - agg.BurnedKcal
		agg.WaterGoalML += baseWater
		out = append(out, agg)
	}
	return out, nil
}
