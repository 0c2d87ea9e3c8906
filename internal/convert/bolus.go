package convert

import (
	"pump-sync/internal/models"
)

// BolusHandler converts completed-bolus events. Depending on the record
// model in effect it emits either a single treatment or the fine-grained
// Bolus / CarbIntake / BolusCalculation triple linked by a correlation id.
type BolusHandler struct {
	f *Factory
}

func (h *BolusHandler) CanHandle(ev models.RawDeviceEvent) bool {
	return ev.EventTypeCode == models.EventBolusCompleted
}

func (h *BolusHandler) Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record {
	insulin, ok := parseScalar(ev.ScalarValue)
	if !ok {
		return nil
	}

	payload := ParsePayload(ev.DeviceInfo)
	calculatorDriven := payload.Bool("WIZARD")

	// Carb resolution, in priority order: the event's own payload, the
	// calculator's carb input, and finally a pre-pass match, which
	// overrides both.
	carbs, _ := payload.Float("CARBS")
	if carbs <= 0 && calculatorDriven {
		if input, ok := payload.Float("CARB_INPUT"); ok {
			carbs = input
		}
	}
	if matched, ok := ctx.MatchedCarbs(ev.EventKey); ok {
		carbs = matched
	}

	snapshot := extractSnapshot(payload)

	if ctx.cfg.EnableDomainRecords {
		return h.domainRecords(ev, insulin, carbs, calculatorDriven, snapshot)
	}
	return h.treatment(ev, insulin, carbs, calculatorDriven, snapshot)
}

// classifyBolus is a pure function of the two quantities; see the
// HasCarbs/HasInsulin split Nightscout clients use.
func classifyBolus(carbs, insulin float64) string {
	hasCarbs := carbs > 0
	hasInsulin := insulin > 0
	switch {
	case hasCarbs && hasInsulin:
		return models.TreatmentMealBolus
	case hasCarbs:
		return models.TreatmentCarbCorrection
	default:
		return models.TreatmentCorrectionBolus
	}
}

func (h *BolusHandler) treatment(ev models.RawDeviceEvent, insulin, carbs float64, calculatorDriven bool, snapshot *models.CalculatorSnapshot) []models.Record {
	t := &models.Treatment{
		RecordBase: h.f.Base(ev),
		EventType:  classifyBolus(carbs, insulin),
		Insulin:    insulin,
		Carbs:      carbs,
	}
	if (calculatorDriven || carbs > 0) && snapshot != nil {
		t.Calculation = snapshot
	}
	return []models.Record{t}
}

func (h *BolusHandler) domainRecords(ev models.RawDeviceEvent, insulin, carbs float64, calculatorDriven bool, snapshot *models.CalculatorSnapshot) []models.Record {
	classification := classifyBolus(carbs, insulin)

	// Sibling records share one correlation id only when there is
	// something to correlate.
	var correlationID string
	if calculatorDriven || carbs > 0 {
		correlationID = h.f.CorrelationID()
	}

	var records []models.Record
	if insulin > 0 {
		records = append(records, &models.Bolus{
			RecordBase:    h.f.Base(ev),
			CorrelationID: correlationID,
			Units:         insulin,
			SubType:       classification,
		})
	}
	if carbs > 0 {
		records = append(records, &models.CarbIntake{
			RecordBase:    h.f.BaseWithSuffix(ev, "carbs"),
			CorrelationID: correlationID,
			Grams:         carbs,
		})
	}
	if (calculatorDriven || carbs > 0) && snapshot != nil {
		records = append(records, &models.BolusCalculation{
			RecordBase:         h.f.BaseWithSuffix(ev, "calc"),
			CorrelationID:      correlationID,
			CalculatorSnapshot: *snapshot,
		})
	}
	return records
}

// extractSnapshot pulls the calculator inputs out of the payload. Returns
// nil when none are present, so no empty calculation records are emitted.
func extractSnapshot(payload Payload) *models.CalculatorSnapshot {
	s := &models.CalculatorSnapshot{}
	if v, ok := payload.Float("BG_INPUT"); ok {
		s.GlucoseInput = &v
	}
	if v, ok := payload.Float("CARB_INPUT"); ok {
		s.CarbInput = &v
	}
	if v, ok := payload.Float("IOB"); ok {
		s.InsulinOnBoard = &v
	}
	if v, ok := payload.Float("RECOMMENDED"); ok {
		s.RecommendedDose = &v
	}
	if s.Empty() {
		return nil
	}
	return s
}
