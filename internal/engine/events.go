package engine

import (
	"fmt"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

// CurrentEvent determines the active market event. An unexpired event is
// returned unchanged; otherwise time-of-day and day-of-week gates combine
// with independent probability rolls to possibly activate a new one.
func (e *Engine) CurrentEvent() EventType {
	now := e.now()

	if e.ctx.ActiveEvent != EventNormal && now.Before(e.ctx.EventEnd) {
		return e.ctx.ActiveEvent
	}

	hour := now.Hour()
	weekday := now.Weekday()

	if hour >= 17 && hour <= 19 && e.rng.Float64() < e.cfg.RushHourProb {
		return e.activate(EventRushHour, now, e.cfg.RushHourDuration)
	}
	if hour >= 18 && hour <= 20 && e.rng.Float64() < e.cfg.HappyHourProb {
		return e.activate(EventHappyHour, now, e.cfg.HappyHourDuration)
	}
	if (weekday == time.Saturday || weekday == time.Sunday) && e.rng.Float64() < e.cfg.WeekendProb {
		return e.activate(EventWeekend, now, e.cfg.WeekendDuration)
	}
	if e.rng.Float64() < e.cfg.SpecialProb {
		return e.activate(EventSpecial, now, e.cfg.SpecialDuration)
	}
	if e.rng.Float64() < e.cfg.CrashProb {
		return e.activate(EventCrash, now, e.cfg.CrashDuration)
	}

	e.ctx.ActiveEvent = EventNormal
	e.ctx.EventEnd = time.Time{}
	return EventNormal
}

func (e *Engine) activate(event EventType, now time.Time, duration time.Duration) EventType {
	e.ctx.ActiveEvent = event
	e.ctx.EventEnd = now.Add(duration)
	return event
}

// ForceEvent activates an event unconditionally. A non-positive
// duration falls back to the event's configured duration. Forcing a
// crash also arms crash-recovery mode.
func (e *Engine) ForceEvent(event EventType, duration time.Duration) {
	if duration <= 0 {
		duration = e.eventDuration(event)
	}
	now := e.now()
	e.activate(event, now, duration)
	if event == EventCrash {
		e.ctx.CrashRecovery = true
		e.ctx.CrashRecoveryStart = now
	}
}

func (e *Engine) eventDuration(event EventType) time.Duration {
	switch event {
	case EventRushHour:
		return e.cfg.RushHourDuration
	case EventHappyHour:
		return e.cfg.HappyHourDuration
	case EventWeekend:
		return e.cfg.WeekendDuration
	case EventSpecial:
		return e.cfg.SpecialDuration
	case EventCrash:
		return e.cfg.CrashDuration
	}
	return time.Hour
}

// updateTrend re-rolls the market trend once its randomized 2–6h window
// has elapsed, and re-derives volatility from the new trend.
func (e *Engine) updateTrend() {
	now := e.now()
	window := e.cfg.TrendChangeMin +
		time.Duration(e.rng.Float64()*float64(e.cfg.TrendChangeMax-e.cfg.TrendChangeMin))
	if now.Sub(e.ctx.LastTrendChange) <= window {
		return
	}

	e.ctx.Trend = allTrends[e.rng.Intn(len(allTrends))]
	e.ctx.TrendStrength = 0.3 + e.rng.Float64()*0.5
	e.ctx.LastTrendChange = now

	switch e.ctx.Trend {
	case TrendVolatile:
		e.ctx.Volatility = 0.15 + e.rng.Float64()*0.10
	case TrendSideways:
		e.ctx.Volatility = 0.05 + e.rng.Float64()*0.10
	default:
		e.ctx.Volatility = 0.10 + e.rng.Float64()*0.10
	}
}

// Level grades a forced crash or boom.
type Level string

const (
	LevelSmall   Level = "small"
	LevelMedium  Level = "medium"
	LevelLarge   Level = "large"
	LevelMaximum Level = "maximum"
)

// ParseLevel validates a forced-event level string.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelSmall, LevelMedium, LevelLarge, LevelMaximum:
		return Level(s), nil
	}
	return "", fmt.Errorf("%w: unknown level %q", models.ErrValidation, s)
}

// SampleLevelPct draws the per-drink price-move fraction for a forced
// event. Maximum returns 1; the caller snaps the price to its bound.
func (e *Engine) SampleLevelPct(level Level) float64 {
	switch level {
	case LevelSmall:
		return 0.05 + e.rng.Float64()*0.05
	case LevelMedium:
		return 0.10 + e.rng.Float64()*0.20
	case LevelLarge:
		return 0.30 + e.rng.Float64()*0.20
	default:
		return 1
	}
}
