package convert

import (
	"testing"

	"pump-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCannulaPrimeProducesSiteChange(t *testing.T) {
	h := &PrimingHandler{f: testFactory()}
	ev := rawEvent(models.EventPriming, 1000, "0.7", "TARGET=CANNULA", "p1")

	records := h.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 2)

	prime := records[0].(*models.DeviceEvent)
	site := records[1].(*models.DeviceEvent)
	assert.Equal(t, "Prime", prime.EventType)
	assert.Equal(t, "Primed 0.70 U", prime.Notes)
	assert.Equal(t, "Site Change", site.EventType)
	assert.Equal(t, prime.LegacyKey+"-site", site.LegacyKey)
}

func TestTubingPrimeProducesNoSiteChange(t *testing.T) {
	h := &PrimingHandler{f: testFactory()}
	ev := rawEvent(models.EventPriming, 1000, "11.2", "TARGET=TUBING", "p1")

	records := h.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 1)
	assert.Equal(t, "Prime", records[0].(*models.DeviceEvent).EventType)
}

func TestLifecycleMarkers(t *testing.T) {
	h := &LifecycleHandler{f: testFactory()}
	ctx := emptyContext(defaultConfig())

	cases := map[int]string{
		models.EventPumpSuspended:    "Pump Suspended",
		models.EventPumpResumed:      "Pump Resumed",
		models.EventCartridgeChanged: "Insulin Change",
	}
	for code, want := range cases {
		ev := rawEvent(code, 1000, "", "", "l1")
		require.True(t, h.CanHandle(ev))
		records := h.Handle(ev, ctx)
		require.Len(t, records, 1)
		assert.Equal(t, want, records[0].(*models.DeviceEvent).EventType)
	}
}

func TestClockChangeCarriesNotes(t *testing.T) {
	h := &LifecycleHandler{f: testFactory()}
	ev := rawEvent(models.EventClockChanged, 1000, "",
		"FROM=2024-01-01T10:00:00Z, TO=2024-01-01T11:00:00Z", "l1")

	records := h.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 1)

	record := records[0].(*models.DeviceEvent)
	assert.Equal(t, "Clock Change", record.EventType)
	assert.Contains(t, record.Notes, "2024-01-01T10:00:00Z")
}

func TestManualGlucoseRespectsFlag(t *testing.T) {
	h := &ManualGlucoseHandler{f: testFactory()}
	ev := rawEvent(models.EventManualGlucose, 1000, "142", "", "g1")

	records := h.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 1)

	treatment := records[0].(*models.Treatment)
	assert.Equal(t, models.TreatmentBGCheck, treatment.EventType)
	assert.InDelta(t, 142, treatment.Glucose, 0.0001)
	assert.Equal(t, "Finger", treatment.GlucoseType)

	cfg := defaultConfig()
	cfg.EnableManualBgSync = false
	assert.Empty(t, h.Handle(ev, emptyContext(cfg)))
}

func TestAlertPriorityFlagsAnnouncement(t *testing.T) {
	h := &AlertHandler{f: testFactory()}

	high := rawEvent(models.EventAlarmRaised, 1000, "", "ALARM_TYPE=OCCLUSION_DETECTED, PRIORITY=HIGH", "a1")
	records := h.Handle(high, emptyContext(defaultConfig()))
	require.Len(t, records, 1)
	note := records[0].(*models.Note)
	assert.Equal(t, "Occlusion detected", note.Text)
	assert.Equal(t, "Pump Alert", note.Category)
	assert.True(t, note.Announcement)

	low := rawEvent(models.EventAlarmRaised, 1000, "", "ALARM_TYPE=LOW_CARTRIDGE, PRIORITY=LOW", "a2")
	records = h.Handle(low, emptyContext(defaultConfig()))
	require.Len(t, records, 1)
	assert.False(t, records[0].(*models.Note).Announcement)
}

func TestDailyDoseNote(t *testing.T) {
	h := &DailyDoseHandler{f: testFactory()}
	ev := rawEvent(models.EventDailyTotalDose, 1000, "34.5", "BASAL=12.0, BOLUS=22.5", "d1")

	records := h.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 1)

	note := records[0].(*models.Note)
	assert.Equal(t, "Total daily dose 34.50 U (basal 12.00 U, bolus 22.50 U)", note.Text)
	assert.Equal(t, "Daily Summary", note.Category)
}

func TestDailyDoseWithoutSplit(t *testing.T) {
	h := &DailyDoseHandler{f: testFactory()}
	ev := rawEvent(models.EventDailyTotalDose, 1000, "34.5", "", "d1")

	records := h.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 1)
	assert.Equal(t, "Total daily dose 34.50 U", records[0].(*models.Note).Text)
}
