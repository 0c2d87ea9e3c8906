package convert

import (
	"fmt"
	"strings"

	"pump-sync/internal/models"
)

// ManualGlucoseHandler converts fingerstick entries keyed into the pump.
// Disabled entirely when manual BG sync is off.
type ManualGlucoseHandler struct {
	f *Factory
}

func (h *ManualGlucoseHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventManualGlucose
}

func (h *ManualGlucoseHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	if !ctx.cfg.EnableManualBgSync {
		return nil
	}
	glucose, ok := parseScalar(ev.ScalarValue)
	if !ok || glucose <= 0 {
		return nil
	}
	return []models.Record{&models.Treatment{
		RecordBase:  h.f.Base(ev),
		EventType:   models.TreatmentBGCheck,
		Glucose:     glucose,
		GlucoseType: "Finger",
		Units:       "mg/dl",
	}}
}

// AlertHandler converts pump alarms into notes. High-priority alarms are
// flagged as announcements so downstream clients surface them.
type AlertHandler struct {
	f *Factory
}

func (h *AlertHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventAlarmRaised
}

func (h *AlertHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	payload := ParsePayload(ev.DeviceInfo)

	text := strings.TrimSpace(ev.DeviceInfo)
	if kind, ok := payload.String("ALARM_TYPE"); ok {
		text = humanizeNotification(kind)
	}
	if text == "" {
		return nil
	}

	priority, _ := payload.String("PRIORITY")
	return []models.Record{&models.Note{
		RecordBase:   h.f.Base(ev),
		Text:         text,
		Category:     "Pump Alert",
		Announcement: priority == "HIGH" || priority == "EMERGENCY",
	}}
}

// DailyDoseHandler converts the pump's end-of-day insulin total into a
// summary note.
type DailyDoseHandler struct {
	f *Factory
}

func (h *DailyDoseHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventDailyTotalDose
}

func (h *DailyDoseHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	total, ok := parseScalar(ev.ScalarValue)
	if !ok || total <= 0 {
		return nil
	}

	payload := ParsePayload(ev.DeviceInfo)
	text := fmt.Sprintf("Total daily dose %.2f U", total)
	if basal, ok := payload.Float("BASAL"); ok {
		if bolus, ok := payload.Float("BOLUS"); ok {
			text = fmt.Sprintf("Total daily dose %.2f U (basal %.2f U, bolus %.2f U)", total, basal, bolus)
		}
	}
	return []models.Record{&models.Note{
		RecordBase: h.f.Base(ev),
		Text:       text,
		Category:   "Daily Summary",
	}}
}
