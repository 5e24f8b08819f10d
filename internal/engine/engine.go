// Package engine implements the market pricing engine: the shared market
// context (trend, volatility, active event, crash recovery) and the
// computation that turns a purchase or a forced event into a bounded
// price delta.
package engine

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

// Trend is the longer-horizon market bias, independent of discrete events.
type Trend string

const (
	TrendBull     Trend = "bull"
	TrendBear     Trend = "bear"
	TrendSideways Trend = "sideways"
	TrendVolatile Trend = "volatile"
)

var allTrends = []Trend{TrendBull, TrendBear, TrendSideways, TrendVolatile}

// EventType is a time-boxed market condition that biases pricing.
type EventType string

const (
	EventNormal    EventType = "normal"
	EventRushHour  EventType = "rush_hour"
	EventHappyHour EventType = "happy_hour"
	EventWeekend   EventType = "weekend"
	EventSpecial   EventType = "special"
	EventCrash     EventType = "crash"
	EventRecovery  EventType = "recovery"
)

// Rand is the injectable random source. *math/rand.Rand satisfies it;
// tests substitute fixed rolls.
type Rand interface {
	Float64() float64
	NormFloat64() float64
	Intn(n int) int
}

// Config holds the engine's tunables.
type Config struct {
	RushHourProb  float64
	HappyHourProb float64
	WeekendProb   float64
	SpecialProb   float64
	CrashProb     float64

	RushHourDuration  time.Duration
	HappyHourDuration time.Duration
	WeekendDuration   time.Duration
	SpecialDuration   time.Duration
	CrashDuration     time.Duration

	TrendChangeMin time.Duration
	TrendChangeMax time.Duration
	RecoveryWindow time.Duration

	// MaxChangePct clips the summed per-transaction delta, as a fraction
	// of the drink's current price.
	MaxChangePct float64
	// CorrelationWeight scales the other drinks' recent changes.
	CorrelationWeight float64
}

// DefaultConfig returns the standard market tuning.
func DefaultConfig() Config {
	return Config{
		RushHourProb:  0.15,
		HappyHourProb: 0.20,
		WeekendProb:   0.30,
		SpecialProb:   0.05,
		CrashProb:     0.02,

		RushHourDuration:  time.Hour,
		HappyHourDuration: 2 * time.Hour,
		WeekendDuration:   24 * time.Hour,
		SpecialDuration:   30 * time.Minute,
		CrashDuration:     5 * time.Minute,

		TrendChangeMin: 2 * time.Hour,
		TrendChangeMax: 6 * time.Hour,
		RecoveryWindow: time.Hour,

		MaxChangePct:      0.05,
		CorrelationWeight: 0.1,
	}
}

// Context is the process-wide mutable market state, created once at
// startup and passed explicitly to every pricing operation. It carries
// no lock of its own: the transaction pipeline serializes all mutation.
type Context struct {
	Trend           Trend
	TrendStrength   float64
	Volatility      float64
	LastTrendChange time.Time

	ActiveEvent EventType
	EventEnd    time.Time

	CrashRecovery      bool
	CrashRecoveryStart time.Time

	recentChanges map[int64]float64
}

// NewContext returns the initial market state: sideways trend, moderate
// strength, 10% base volatility.
func NewContext(now time.Time) *Context {
	return &Context{
		Trend:           TrendSideways,
		TrendStrength:   0.5,
		Volatility:      0.1,
		LastTrendChange: now,
		ActiveEvent:     EventNormal,
		recentChanges:   make(map[int64]float64),
	}
}

// RecordChange remembers the last applied signed price change of a
// drink, feeding the correlation effect on subsequent purchases.
func (c *Context) RecordChange(drinkID int64, change float64) {
	c.recentChanges[drinkID] = change
}

// RecentChange returns the last recorded change of a drink, 0 when none.
func (c *Context) RecentChange(drinkID int64) float64 {
	return c.recentChanges[drinkID]
}

// ForgetDrink drops the velocity tracking of a deleted drink.
func (c *Context) ForgetDrink(drinkID int64) {
	delete(c.recentChanges, drinkID)
}

// Reset returns the context to its initial state.
func (c *Context) Reset(now time.Time) {
	*c = *NewContext(now)
}

// ContextSnapshot is the persisted form of the market context.
type ContextSnapshot struct {
	Trend              Trend              `json:"trend"`
	TrendStrength      float64            `json:"trend_strength"`
	Volatility         float64            `json:"volatility"`
	LastTrendChange    time.Time          `json:"last_trend_change"`
	ActiveEvent        EventType          `json:"active_event"`
	EventEnd           time.Time          `json:"event_end"`
	CrashRecovery      bool               `json:"crash_recovery"`
	CrashRecoveryStart time.Time          `json:"crash_recovery_start"`
	RecentChanges      map[string]float64 `json:"recent_changes"`
}

// Snapshot captures the context for persistence.
func (c *Context) Snapshot() ContextSnapshot {
	recent := make(map[string]float64, len(c.recentChanges))
	for id, change := range c.recentChanges {
		recent[strconv.FormatInt(id, 10)] = change
	}
	return ContextSnapshot{
		Trend:              c.Trend,
		TrendStrength:      c.TrendStrength,
		Volatility:         c.Volatility,
		LastTrendChange:    c.LastTrendChange,
		ActiveEvent:        c.ActiveEvent,
		EventEnd:           c.EventEnd,
		CrashRecovery:      c.CrashRecovery,
		CrashRecoveryStart: c.CrashRecoveryStart,
		RecentChanges:      recent,
	}
}

// Restore rehydrates the context from a persisted snapshot.
func (c *Context) Restore(snap ContextSnapshot) {
	c.Trend = snap.Trend
	if c.Trend == "" {
		c.Trend = TrendSideways
	}
	c.TrendStrength = snap.TrendStrength
	c.Volatility = snap.Volatility
	if c.Volatility == 0 {
		c.Volatility = 0.1
	}
	c.LastTrendChange = snap.LastTrendChange
	c.ActiveEvent = snap.ActiveEvent
	if c.ActiveEvent == "" {
		c.ActiveEvent = EventNormal
	}
	c.EventEnd = snap.EventEnd
	c.CrashRecovery = snap.CrashRecovery
	c.CrashRecoveryStart = snap.CrashRecoveryStart
	c.recentChanges = make(map[int64]float64, len(snap.RecentChanges))
	for key, change := range snap.RecentChanges {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			c.recentChanges[id] = change
		}
	}
}

// Engine computes price deltas against a shared market context.
type Engine struct {
	cfg Config
	ctx *Context
	rng Rand
	now func() time.Time
}

// New creates an engine over ctx. A nil rng gets a time-seeded source;
// a nil now defaults to time.Now.
func New(cfg Config, ctx *Context, rng Rand, now func() time.Time) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{cfg: cfg, ctx: ctx, rng: rng, now: now}
}

// Context exposes the shared market context.
func (e *Engine) Context() *Context { return e.ctx }

// Status reports the current market state, refreshing the active event
// first so expired windows are not reported.
func (e *Engine) Status() models.MarketStatus {
	event := e.CurrentEvent()
	return models.MarketStatus{
		Trend:           string(e.ctx.Trend),
		TrendStrength:   e.ctx.TrendStrength,
		Volatility:      e.ctx.Volatility,
		CurrentEvent:    string(event),
		CrashRecovery:   e.ctx.CrashRecovery,
		LastTrendChange: e.ctx.LastTrendChange,
	}
}
