package convert

import (
	"fmt"

	"pump-sync/internal/models"
)

// PrimingHandler converts fill events. A cannula prime marks a fresh
// infusion site, so it additionally produces a site-change device event
// with a suffixed key so both records can coexist.
type PrimingHandler struct {
	f *Factory
}

func (h *PrimingHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventPriming
}

func (h *PrimingHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	payload := ParsePayload(ev.DeviceInfo)
	target, _ := payload.String("TARGET")

	notes := ""
	if units, ok := parseScalar(ev.ScalarValue); ok && units > 0 {
		notes = fmt.Sprintf("Primed %.2f U", units)
	}

	records := []models.Record{&models.DeviceEvent{
		RecordBase: h.f.Base(ev),
		EventType:  "Prime",
		Notes:      notes,
	}}

	if target == "CANNULA" {
		records = append(records, &models.DeviceEvent{
			RecordBase: h.f.BaseWithSuffix(ev, "site"),
			EventType:  "Site Change",
		})
	}
	return records
}

// LifecycleHandler converts the plain pump lifecycle markers.
type LifecycleHandler struct {
	f *Factory
}

var lifecycleEventTypes = map[int]string{
	models.EventPumpSuspended:    "Pump Suspended",
	models.EventPumpResumed:      "Pump Resumed",
	models.EventCartridgeChanged: "Insulin Change",
	models.EventClockChanged:     "Clock Change",
}

func (h *LifecycleHandler) CanHandle(ev models.RawDeviceEvent) bool {
	_, ok := lifecycleEventTypes[ev.EventTypeCode]
	return ok
}

func (h *LifecycleHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	record := &models.DeviceEvent{
		RecordBase: h.f.Base(ev),
		EventType:  lifecycleEventTypes[ev.EventTypeCode],
	}

	if ev.EventTypeCode == models.EventClockChanged {
		payload := ParsePayload(ev.DeviceInfo)
		if from, ok := payload.String("FROM"); ok {
			if to, ok := payload.String("TO"); ok {
				record.Notes = fmt.Sprintf("Device clock changed from %s to %s", from, to)
			}
		}
	}
	return []models.Record{record}
}
