package convert

import (
	"pump-sync/internal/models"
)

// CarbHandler converts standalone carb entries. Entries whose grams were
// folded into a nearby bolus during the pre-pass are suppressed here so the
// carbs are not counted twice.
type CarbHandler struct {
	f *Factory
}

func (h *CarbHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventCarbEntered
}

func (h *CarbHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	grams, ok := parseScalar(ev.ScalarValue)
	if !ok || grams <= 0 {
		return nil
	}
	if ctx.CarbSuppressed(EventTime(ev)) {
		return nil
	}

	if ctx.cfg.EnableDomainRecords {
		return []models.Record{&models.CarbIntake{
			RecordBase: h.f.Base(ev),
			Grams:      grams,
		}}
	}
	return []models.Record{&models.Treatment{
		RecordBase: h.f.Base(ev),
		EventType:  models.TreatmentCarbCorrection,
		Carbs:      grams,
	}}
}
