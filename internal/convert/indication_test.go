package convert

import (
	"testing"

	"pump-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileSwitchClaimsOnlyProfileVariants(t *testing.T) {
	profileSwitch := &ProfileSwitchHandler{f: testFactory()}
	indication := &IndicationHandler{f: testFactory()}

	ev := rawEvent(models.EventIndication, 1000,
		"", "NOTIFICATION_TYPE=BASAL_PROFILE_CHANGED, PARAM_1=3, PARAM_2=Weekend", "i1")

	assert.True(t, profileSwitch.CanHandle(ev))
	assert.False(t, indication.CanHandle(ev))

	records := profileSwitch.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 1)

	treatment := records[0].(*models.Treatment)
	assert.Equal(t, models.TreatmentProfileSwitch, treatment.EventType)
	assert.Equal(t, "Weekend", treatment.Profile)
}

func TestPatternChangedVariant(t *testing.T) {
	h := &ProfileSwitchHandler{f: testFactory()}
	ev := rawEvent(models.EventIndication, 1000,
		"", "NOTIFICATION_TYPE=PATTERN_CHANGED, PARAM_1=1, PARAM_2=Exercise", "i1")

	assert.True(t, h.CanHandle(ev))
	records := h.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 1)
	assert.Equal(t, "Exercise", records[0].(*models.Treatment).Profile)
}

func TestBatteryRemovedBecomesDeviceEvent(t *testing.T) {
	profileSwitch := &ProfileSwitchHandler{f: testFactory()}
	indication := &IndicationHandler{f: testFactory()}

	ev := rawEvent(models.EventIndication, 1000, "", "NOTIFICATION_TYPE=BATTERY_REMOVED", "i1")

	assert.False(t, profileSwitch.CanHandle(ev))
	require.True(t, indication.CanHandle(ev))

	records := indication.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 1)
	assert.Equal(t, "Pump Battery Change", records[0].(*models.DeviceEvent).EventType)
}

func TestUnknownIndicationBecomesNote(t *testing.T) {
	h := &IndicationHandler{f: testFactory()}
	ev := rawEvent(models.EventIndication, 1000, "", "NOTIFICATION_TYPE=LOW_CARTRIDGE", "i1")

	records := h.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 1)

	note := records[0].(*models.Note)
	assert.Equal(t, "Low cartridge", note.Text)
	assert.Equal(t, "Pump Indication", note.Category)
}

func TestMalformedIndicationPayloadBecomesOpaqueNote(t *testing.T) {
	h := &IndicationHandler{f: testFactory()}
	ev := rawEvent(models.EventIndication, 1000, "", "pump screen cracked", "i1")

	records := h.Handle(ev, emptyContext(defaultConfig()))
	require.Len(t, records, 1)
	assert.Equal(t, "pump screen cracked", records[0].(*models.Note).Text)
}

func TestEmptyIndicationProducesNothing(t *testing.T) {
	h := &IndicationHandler{f: testFactory()}
	ev := rawEvent(models.EventIndication, 1000, "", "", "i1")
	assert.Empty(t, h.Handle(ev, emptyContext(defaultConfig())))
}
