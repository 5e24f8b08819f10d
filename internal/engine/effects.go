package engine

import (
	"math"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

// correlations maps (category, other category) to a signed coefficient.
// Not numerically symmetric; each row is read from the perspective of the
// purchased drink.
var correlations = map[string]map[string]float64{
	models.CategoryBeer:     {models.CategoryCocktail: 0.3, models.CategorySoft: -0.2, models.CategoryShot: 0.4},
	models.CategoryCocktail: {models.CategoryBeer: 0.3, models.CategorySoft: -0.1, models.CategoryShot: 0.6},
	models.CategorySoft:     {models.CategoryBeer: -0.2, models.CategoryCocktail: -0.1, models.CategoryShot: -0.3},
	models.CategoryShot:     {models.CategoryBeer: 0.4, models.CategoryCocktail: 0.6, models.CategorySoft: -0.3},
}

// eventEffects is the per-category base-price fraction applied while an
// event is active. Cocktails swing harder than beer during happy hour.
var eventEffects = map[string]map[EventType]float64{
	models.CategoryBeer: {
		EventRushHour:  0.05,
		EventHappyHour: -0.03,
		EventWeekend:   0.08,
		EventSpecial:   0.10,
	},
	models.CategoryCocktail: {
		EventRushHour:  0.08,
		EventHappyHour: 0.12,
		EventWeekend:   0.15,
		EventSpecial:   0.20,
	},
	models.CategorySoft: {
		EventRushHour:  0.02,
		EventHappyHour: -0.05,
		EventWeekend:   0.03,
		EventSpecial:   0.05,
	},
	models.CategoryShot: {
		EventRushHour:  0.06,
		EventHappyHour: 0.10,
		EventWeekend:   0.12,
		EventSpecial:   0.15,
	},
}

// crashMultipliers weights the crash hit per category: premium drinks
// fall harder.
var crashMultipliers = map[string]float64{
	models.CategoryBeer:     0.8,
	models.CategoryCocktail: 1.2,
	models.CategorySoft:     0.6,
	models.CategoryShot:     1.0,
}

// recoverySpeeds weights how fast each category climbs back after a
// crash.
var recoverySpeeds = map[string]float64{
	models.CategoryBeer:     1.2,
	models.CategoryCocktail: 0.8,
	models.CategorySoft:     1.5,
	models.CategoryShot:     1.0,
}

func categoryWeight(table map[string]float64, category string) float64 {
	if w, ok := table[category]; ok {
		return w
	}
	return 1.0
}

// baseChange is the purchase-driven component: 1% of base price per unit
// bought, scaled by the market trend.
func (e *Engine) baseChange(quantity int, basePrice float64) float64 {
	change := 0.01 * float64(quantity) * basePrice

	switch e.ctx.Trend {
	case TrendBull:
		change *= 1 + e.ctx.TrendStrength*0.5
	case TrendBear:
		change *= 1 - e.ctx.TrendStrength*0.3
	case TrendVolatile:
		change *= 1 + (e.rng.Float64()-0.5) // ±50%
	}
	return change
}

// volatilityNoise is a Gaussian sample with standard deviation
// 0.1 × current volatility, scaled by the active event.
func (e *Engine) volatilityNoise(event EventType) float64 {
	noise := e.rng.NormFloat64() * e.ctx.Volatility * 0.1

	switch event {
	case EventRushHour:
		noise *= 1.5
	case EventHappyHour:
		noise *= 0.8
	case EventWeekend:
		noise *= 1.2
	case EventSpecial:
		noise *= 2.0
	}
	return noise
}

// CorrelationEffect sums the influence the other drinks' recent price
// moves exert on d via the correlation matrix.
func (e *Engine) CorrelationEffect(d models.Drink, others []models.Drink) float64 {
	row := correlations[d.Category]
	if row == nil {
		return 0
	}
	var total float64
	for _, other := range others {
		if other.ID == d.ID {
			continue
		}
		coeff := row[other.Category]
		if coeff == 0 {
			continue
		}
		total += coeff * e.ctx.RecentChange(other.ID) * e.cfg.CorrelationWeight
	}
	return total
}

// eventEffect is the per-category fixed fraction of base price applied
// while an event is active, with a ±20% jitter.
func (e *Engine) eventEffect(category string, event EventType, basePrice float64) float64 {
	if event == EventNormal {
		return 0
	}
	effect := eventEffects[category][event]
	if effect == 0 {
		return 0
	}
	jitter := 0.8 + e.rng.Float64()*0.4
	return effect * jitter * basePrice
}

// crashEffect is the one-shot hit when a crash event fires: −10% to −30%
// of base price, category-weighted.
func (e *Engine) crashEffect(category string, basePrice float64) float64 {
	base := -(0.10 + e.rng.Float64()*0.20)
	return base * categoryWeight(crashMultipliers, category) * basePrice
}

// recoveryEffect ramps linearly over the recovery window, up to +2% of
// base price per purchase, category-weighted.
func (e *Engine) recoveryEffect(category string, basePrice float64) float64 {
	if !e.ctx.CrashRecovery {
		return 0
	}
	elapsed := e.now().Sub(e.ctx.CrashRecoveryStart)
	factor := math.Min(elapsed.Seconds()/e.cfg.RecoveryWindow.Seconds(), 1.0)
	return 0.02 * factor * categoryWeight(recoverySpeeds, category) * basePrice
}

// PriceChange computes the total signed delta for a purchase of quantity
// units of d, and the history label of the dominant effect. The summed
// delta is clipped to ±MaxChangePct of the drink's current price; bound
// clamping against [MinPrice, MaxPrice] is the caller's job.
func (e *Engine) PriceChange(d models.Drink, quantity int, others []models.Drink, correlationEnabled bool) (float64, string) {
	e.updateTrend()
	event := e.CurrentEvent()

	base := e.baseChange(quantity, d.BasePrice)
	noise := e.volatilityNoise(event)

	var correlation float64
	if correlationEnabled {
		correlation = e.CorrelationEffect(d, others)
	}
	eventPart := e.eventEffect(d.Category, event, d.BasePrice)

	var crash, recovery float64
	now := e.now()
	if event == EventCrash {
		crash = e.crashEffect(d.Category, d.BasePrice)
		e.ctx.CrashRecovery = true
		e.ctx.CrashRecoveryStart = now
	} else if e.ctx.CrashRecovery {
		recovery = e.recoveryEffect(d.Category, d.BasePrice)
		if now.Sub(e.ctx.CrashRecoveryStart) > e.cfg.RecoveryWindow {
			e.ctx.CrashRecovery = false
		}
	}

	total := base + noise + correlation + eventPart + crash + recovery

	// The per-transaction clamp dominates every component effect.
	maxChange := d.Price * e.cfg.MaxChangePct
	total = math.Max(-maxChange, math.Min(maxChange, total))

	label := "buy"
	switch {
	case event != EventNormal:
		label = string(event)
	case crash != 0:
		label = string(EventCrash)
	case recovery != 0:
		label = string(EventRecovery)
	}
	return total, label
}
