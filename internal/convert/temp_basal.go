package convert

import (
	"pump-sync/internal/models"
	"pump-sync/internal/profile"
)

// resolveTempRate extracts the program's rate from a temp-rate event. The
// payload carries either an absolute RATE (with the scalar value as
// fallback) or a PERCENT of the scheduled rate, which is resolved against
// the basal profile. Reports !ok when no rate can be determined.
func resolveTempRate(ev models.RawDeviceEvent, basal *profile.BasalProfile) (rate float64, percent, durationMin *float64, ok bool) {
	payload := ParsePayload(ev.DeviceInfo)

	if v, found := payload.Float("PERCENT"); found {
		percent = &v
	}
	if v, found := payload.Float("DURATION_MIN"); found {
		durationMin = &v
	}

	if v, found := payload.Float("RATE"); found {
		return v, percent, durationMin, true
	}
	// A zero scalar next to an explicit percentage is a placeholder, not a
	// suspension; let the percentage decide.
	if v, found := parseScalar(ev.ScalarValue); found && (v != 0 || percent == nil) {
		return v, percent, durationMin, true
	}
	if percent != nil {
		return *percent / 100 * basal.RateAt(EventTime(ev)), percent, durationMin, true
	}
	return 0, percent, durationMin, false
}

// tempOrigin classifies a temp program. An explicit zero (or negative)
// percentage is a suspension, as is a zero resolved rate with no percentage
// present; everything else is a user-initiated manual rate.
func tempOrigin(rate float64, percent *float64) models.BasalOrigin {
	if percent != nil && *percent <= 0 {
		return models.OriginSuspended
	}
	if percent == nil && rate <= 0 {
		return models.OriginSuspended
	}
	return models.OriginManual
}

// TempBasalTreatmentHandler emits the discrete clinical entry for a
// temp-rate program. The registration gate keeps it to at most one
// treatment per timestamp when overlapping signals arrive.
type TempBasalTreatmentHandler struct {
	f *Factory
}

func (h *TempBasalTreatmentHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventTempRateProgram
}

func (h *TempBasalTreatmentHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	rate, percent, durationMin, ok := resolveTempRate(ev, ctx.cfg.Basal)
	if !ok {
		return nil
	}

	eventTime := EventTime(ev)
	if !ctx.TryRegisterTempBasal(eventTime) {
		return nil
	}
	if consolidated, found := ctx.ConsolidatedRate(eventTime); found {
		rate = consolidated
	}

	t := &models.Treatment{
		RecordBase: h.f.Base(ev),
		EventType:  models.TreatmentTempBasal,
		Rate:       &rate,
		Percent:    percent,
	}
	if durationMin != nil {
		t.DurationMinutes = *durationMin
	}
	return []models.Record{t}
}

// TempBasalSpanHandler emits the delivery-timeline span for the same
// events. It is exempt from the registration gate: the continuous timeline
// legitimately carries every program, not just the first per timestamp.
type TempBasalSpanHandler struct {
	f *Factory
}

func (h *TempBasalSpanHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventTempRateProgram
}

func (h *TempBasalSpanHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	rate, percent, durationMin, ok := resolveTempRate(ev, ctx.cfg.Basal)
	if !ok {
		return nil
	}

	startMills := EventTime(ev).UnixMilli()
	span := &models.BasalDelivery{
		RecordBase: h.f.Base(ev),
		StartMills: startMills,
		Rate:       rate,
		Origin:     tempOrigin(rate, percent),
	}

	if percent != nil || durationMin != nil {
		span.Metadata = map[string]float64{}
		if percent != nil {
			span.Metadata["percent"] = *percent
		}
		if durationMin != nil {
			span.Metadata["duration"] = *durationMin
			end := startMills + int64(*durationMin*60000)
			span.EndMills = &end
		}
	}
	return []models.Record{span}
}
