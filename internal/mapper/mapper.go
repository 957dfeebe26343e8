// Package mapper implements the XML→domain mapper (component G): filters
// the upstream catalog to online plans, derives price ranges from
// available zones, and mints fresh ids for newly observed events.
package mapper

import (
	"log/slog"

	"github.com/fever-marketplace/events/internal/domain"
	"github.com/fever-marketplace/events/internal/provider"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ToOnlineEvents converts every plan of every online base_plan into a
// domain Event, per §4.7. Only base plans with sell_mode == "online" are
// considered; only zones with capacity > 0 contribute to the price range.
// A plan that fails to map (unparseable dates, failed invariants) is
// dropped with a warning and does not abort the batch.
func ToOnlineEvents(basePlans []provider.BasePlanXML) []*domain.Event {
	var events []*domain.Event
	for _, basePlan := range basePlans {
		if basePlan.SellMode != "online" {
			continue
		}
		for _, plan := range basePlan.Plans {
			event, err := toEvent(basePlan, plan)
			if err != nil {
				slog.Warn("[Mapper] dropping plan", "base_plan_id", basePlan.BasePlanID, "plan_id", plan.PlanID, "error", err)
				continue
			}
			events = append(events, event)
		}
	}
	return events
}

func toEvent(basePlan provider.BasePlanXML, plan provider.PlanXML) (*domain.Event, error) {
	start, err := domain.ParseCivilDateTime(plan.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseCivilDateTime(plan.EndDate)
	if err != nil {
		return nil, err
	}

	minPrice, maxPrice := priceRange(plan.Zones)

	event := &domain.Event{
		ID:        uuid.NewString(),
		Title:     basePlan.Title,
		StartDate: start.Date,
		StartTime: start.Time,
		EndDate:   end.Date,
		EndTime:   end.Time,
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

// priceRange derives (min_price, max_price) from the zones with
// capacity > 0, falling back to zero when no zone is available — the same
// behavior as the original's BigDecimal.ZERO default.
func priceRange(zones []provider.ZoneXML) (decimal.Decimal, decimal.Decimal) {
	var (
		min     decimal.Decimal
		max     decimal.Decimal
		anySeen bool
	)
	for _, zone := range zones {
		if zone.Capacity <= 0 {
			continue
		}
		price := decimal.NewFromFloat(zone.Price)
		if !anySeen || price.LessThan(min) {
			min = price
		}
		if !anySeen || price.GreaterThan(max) {
			max = price
		}
		anySeen = true
	}
	return min, max
}
