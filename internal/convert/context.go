package convert

import (
	"time"

	"pump-sync/internal/models"
	"pump-sync/internal/profile"
)

// carbMatchTolerance is how far apart a carb entry and a bolus may sit and
// still be treated as one meal.
const carbMatchTolerance = 5 * time.Minute

// Config is the immutable per-batch configuration.
type Config struct {
	EnableManualBgSync          bool
	EnableMealCarbConsolidation bool
	EnableDomainRecords         bool
	Basal                       *profile.BasalProfile
}

// Context is the per-batch, per-subject correlation state. It is populated
// by a pre-pass over the whole batch and consulted during dispatch. It must
// never be shared across subjects or reused for a second batch.
type Context struct {
	cfg Config

	// Carb entries whose grams were folded into a nearby bolus; keyed by
	// event time in unix millis.
	suppressedCarbTimes map[int64]struct{}

	// Carb grams matched to a bolus during the pre-pass, keyed by the
	// bolus's event key.
	bolusCarbMatches map[string]float64

	// Timestamps that already produced a temp-basal treatment; first
	// registration wins.
	registeredTempBasals map[int64]struct{}

	// Rate to substitute when several temp-rate signals share a timestamp.
	consolidatedTempBasalRates map[int64]float64
}

// BuildContext runs the pre-pass. It must see the whole batch before any
// dispatch starts, because dispatch reads the state built here.
func BuildContext(cfg Config, events []models.RawDeviceEvent) *Context {
	c := &Context{
		cfg:                        cfg,
		suppressedCarbTimes:        make(map[int64]struct{}),
		bolusCarbMatches:           make(map[string]float64),
		registeredTempBasals:       make(map[int64]struct{}),
		consolidatedTempBasalRates: make(map[int64]float64),
	}

	if cfg.EnableMealCarbConsolidation {
		c.matchMealCarbs(events)
	}
	c.consolidateTempRates(events)
	return c
}

// matchMealCarbs pairs each carb entry with a bolus within the tolerance
// window. The matched grams override whatever the bolus itself carries, and
// the carb entry is suppressed so it does not also appear standalone.
func (c *Context) matchMealCarbs(events []models.RawDeviceEvent) {
	for _, carb := range events {
		if carb.EventTypeCode != models.EventCarbEntered {
			continue
		}
		grams, ok := parseScalar(carb.ScalarValue)
		if !ok || grams <= 0 {
			continue
		}
		carbTime := EventTime(carb)

		for _, bolus := range events {
			if bolus.EventTypeCode != models.EventBolusCompleted {
				continue
			}
			if _, taken := c.bolusCarbMatches[bolus.EventKey]; taken {
				continue
			}
			gap := EventTime(bolus).Sub(carbTime)
			if gap < 0 {
				gap = -gap
			}
			if gap <= carbMatchTolerance {
				c.bolusCarbMatches[bolus.EventKey] = grams
				c.suppressedCarbTimes[carbTime.UnixMilli()] = struct{}{}
				break
			}
		}
	}
}

// consolidateTempRates records a substitute rate for timestamps carrying
// more than one temp-rate signal. The last program at a timestamp wins; the
// first event to register still owns the treatment slot.
func (c *Context) consolidateTempRates(events []models.RawDeviceEvent) {
	seen := make(map[int64]int)
	for _, ev := range events {
		if ev.EventTypeCode != models.EventTempRateProgram {
			continue
		}
		millis := EventTime(ev).UnixMilli()
		seen[millis]++
		if seen[millis] < 2 {
			continue
		}
		if rate, _, _, ok := resolveTempRate(ev, c.cfg.Basal); ok {
			c.consolidatedTempBasalRates[millis] = rate
		}
	}
}

// CarbSuppressed reports whether a carb entry at t was folded into a bolus
// and must not be emitted standalone.
func (c *Context) CarbSuppressed(t time.Time) bool {
	_, ok := c.suppressedCarbTimes[t.UnixMilli()]
	return ok
}

// MatchedCarbs returns the carb grams the pre-pass matched to the given
// bolus event key.
func (c *Context) MatchedCarbs(eventKey string) (float64, bool) {
	grams, ok := c.bolusCarbMatches[eventKey]
	return grams, ok
}

// TryRegisterTempBasal claims the temp-basal treatment slot for t. It
// returns false if the slot is already taken, which caps treatments at one
// per timestamp. Delivery spans are exempt from this gate.
func (c *Context) TryRegisterTempBasal(t time.Time) bool {
	millis := t.UnixMilli()
	if _, taken := c.registeredTempBasals[millis]; taken {
		return false
	}
	c.registeredTempBasals[millis] = struct{}{}
	return true
}

// ConsolidatedRate returns the substitute rate for t when overlapping
// temp-rate signals were consolidated during the pre-pass.
func (c *Context) ConsolidatedRate(t time.Time) (float64, bool) {
	rate, ok := c.consolidatedTempBasalRates[t.UnixMilli()]
	return rate, ok
}
