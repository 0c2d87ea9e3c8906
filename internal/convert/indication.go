package convert

import (
	"fmt"
	"strings"

	"pump-sync/internal/models"
)

// Indication payload vocabulary. The vendor overloads one event type for
// profile switches, battery removal and generic notices, discriminated by
// NOTIFICATION_TYPE.
const (
	notificationKey       = "NOTIFICATION_TYPE"
	notificationProfileV1 = "BASAL_PROFILE_CHANGED"
	notificationProfileV2 = "PATTERN_CHANGED"
	notificationBattery   = "BATTERY_REMOVED"

	// The new profile name sits in the second positional parameter.
	profileNameKey = "PARAM_2"
)

func isProfileSwitch(ev models.RawDeviceEvent) bool {
	kind, ok := ParsePayload(ev.DeviceInfo).String(notificationKey)
	if !ok {
		return false
	}
	return kind == notificationProfileV1 || kind == notificationProfileV2
}

// ProfileSwitchHandler is the sole claimant for profile-changed
// indications. IndicationHandler explicitly excludes them, so each raw
// indication produces exactly one record of this family.
type ProfileSwitchHandler struct {
	f *Factory
}

func (h *ProfileSwitchHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventIndication && isProfileSwitch(ev)
}

func (h *ProfileSwitchHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	name, _ := ParsePayload(ev.DeviceInfo).String(profileNameKey)
	return []models.Record{&models.Treatment{
		RecordBase: h.f.Base(ev),
		EventType:  models.TreatmentProfileSwitch,
		Profile:    name,
	}}
}

// IndicationHandler covers the remaining indication variants: battery
// removal becomes a device event, anything else a note. A payload that
// cannot be parsed at all is carried as opaque note text.
type IndicationHandler struct {
	f *Factory
}

func (h *IndicationHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventIndication && !isProfileSwitch(ev)
}

func (h *IndicationHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	payload := ParsePayload(ev.DeviceInfo)
	kind, ok := payload.String(notificationKey)

	if ok && kind == notificationBattery {
		return []models.Record{&models.DeviceEvent{
			RecordBase: h.f.Base(ev),
			EventType:  "Pump Battery Change",
		}}
	}

	text := strings.TrimSpace(ev.DeviceInfo)
	if ok {
		text = humanizeNotification(kind)
	}
	if text == "" {
		return nil
	}
	return []models.Record{&models.Note{
		RecordBase: h.f.Base(ev),
		Text:       text,
		Category:   "Pump Indication",
	}}
}

// humanizeNotification turns SOME_NOTICE_CODE into "Some notice code".
func humanizeNotification(kind string) string {
	words := strings.ToLower(strings.ReplaceAll(kind, "_", " "))
	if words == "" {
		return ""
	}
	return fmt.Sprintf("%s%s", strings.ToUpper(words[:1]), words[1:])
}
