package convert

import (
	"testing"

	"pump-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrePassMatchesCarbToNearbyBolus(t *testing.T) {
	events := []models.RawDeviceEvent{
		rawEvent(models.EventCarbEntered, 1000, "45", "", "carb-1"),
		rawEvent(models.EventBolusCompleted, 1120, "4.0", "", "bolus-1"), // 2 min later
	}
	ctx := BuildContext(defaultConfig(), events)

	grams, ok := ctx.MatchedCarbs("bolus-1")
	require.True(t, ok)
	assert.InDelta(t, 45, grams, 0.0001)
	assert.True(t, ctx.CarbSuppressed(EventTime(events[0])))
}

func TestPrePassIgnoresDistantBolus(t *testing.T) {
	events := []models.RawDeviceEvent{
		rawEvent(models.EventCarbEntered, 1000, "45", "", "carb-1"),
		rawEvent(models.EventBolusCompleted, 1000+600, "4.0", "", "bolus-1"), // 10 min later
	}
	ctx := BuildContext(defaultConfig(), events)

	_, ok := ctx.MatchedCarbs("bolus-1")
	assert.False(t, ok)
	assert.False(t, ctx.CarbSuppressed(EventTime(events[0])))
}

func TestPrePassDisabledByFlag(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnableMealCarbConsolidation = false

	events := []models.RawDeviceEvent{
		rawEvent(models.EventCarbEntered, 1000, "45", "", "carb-1"),
		rawEvent(models.EventBolusCompleted, 1060, "4.0", "", "bolus-1"),
	}
	ctx := BuildContext(cfg, events)

	_, ok := ctx.MatchedCarbs("bolus-1")
	assert.False(t, ok)
	assert.False(t, ctx.CarbSuppressed(EventTime(events[0])))
}

func TestPrePassOneCarbPerBolus(t *testing.T) {
	events := []models.RawDeviceEvent{
		rawEvent(models.EventCarbEntered, 1000, "45", "", "carb-1"),
		rawEvent(models.EventCarbEntered, 1060, "20", "", "carb-2"),
		rawEvent(models.EventBolusCompleted, 1030, "4.0", "", "bolus-1"),
	}
	ctx := BuildContext(defaultConfig(), events)

	grams, ok := ctx.MatchedCarbs("bolus-1")
	require.True(t, ok)
	assert.InDelta(t, 45, grams, 0.0001)

	// The second carb entry found no free bolus and stays standalone.
	assert.False(t, ctx.CarbSuppressed(EventTime(events[1])))
}

func TestTryRegisterTempBasalFirstWins(t *testing.T) {
	ctx := emptyContext(defaultConfig())
	ts := EventTime(rawEvent(models.EventTempRateProgram, 1000, "", "", ""))

	assert.True(t, ctx.TryRegisterTempBasal(ts))
	assert.False(t, ctx.TryRegisterTempBasal(ts))
}

func TestConsolidatedRateForOverlappingSignals(t *testing.T) {
	events := []models.RawDeviceEvent{
		rawEvent(models.EventTempRateProgram, 1000, "", "RATE=0.8", "tb-1"),
		rawEvent(models.EventTempRateProgram, 1000, "", "RATE=1.1", "tb-2"),
	}
	ctx := BuildContext(defaultConfig(), events)

	rate, ok := ctx.ConsolidatedRate(EventTime(events[0]))
	require.True(t, ok)
	assert.InDelta(t, 1.1, rate, 0.0001)
}

func TestNoConsolidationForSingleSignal(t *testing.T) {
	events := []models.RawDeviceEvent{
		rawEvent(models.EventTempRateProgram, 1000, "", "RATE=0.8", "tb-1"),
	}
	ctx := BuildContext(defaultConfig(), events)

	_, ok := ctx.ConsolidatedRate(EventTime(events[0]))
	assert.False(t, ok)
}
