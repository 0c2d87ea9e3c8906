package convert

import (
	"pump-sync/internal/models"
)

// BasalDeliveredHandler converts the pump's periodic delivered-amount
// report. The report covers a nominal one-hour window, so the delivered
// units approximate a rate in units/hour. The true end of the window is not
// explicit in the event, so the span stays open-ended; downstream
// post-processing closes it when the next span begins.
type BasalDeliveredHandler struct {
	f *Factory
}

func (h *BasalDeliveredHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventBasalDelivered
}

func (h *BasalDeliveredHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	amount, ok := parseScalar(ev.ScalarValue)
	if !ok {
		return nil
	}

	origin := models.OriginScheduled
	if amount <= 0 {
		origin = models.OriginSuspended
	}

	return []models.Record{&models.BasalDelivery{
		RecordBase: h.f.Base(ev),
		StartMills: EventTime(ev).UnixMilli(),
		Rate:       amount,
		Origin:     origin,
	}}
}
