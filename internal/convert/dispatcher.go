package convert

import (
	"pump-sync/internal/models"
)

// EventHandler converts one raw event into zero or more canonical records.
// Handlers must not return an error: malformed data degrades to an empty
// result so a single bad event never aborts a batch.
type EventHandler interface {
	CanHandle(ev models.RawDeviceEvent) bool
	Handle(ev models.RawDeviceEvent, ctx *Context) []models.Record
}

// Dispatcher routes each raw event to every handler that claims it. Some
// events are claimed by two handlers on purpose: a temp-rate program yields
// both a treatment and a delivery span. Events claimed by nobody are
// dropped silently.
type Dispatcher struct {
	handlers []EventHandler
}

// NewDispatcher builds the full ordered handler set. The order is fixed so
// output ordering is deterministic for a given input.
func NewDispatcher(f *Factory) *Dispatcher {
	return &Dispatcher{
		handlers: []EventHandler{
			&BolusHandler{f: f},
			&BasalDeliveredHandler{f: f},
			&TempBasalTreatmentHandler{f: f},
			&TempBasalSpanHandler{f: f},
			&CarbHandler{f: f},
			&ProfileSwitchHandler{f: f},
			&IndicationHandler{f: f},
			&PrimingHandler{f: f},
			&LifecycleHandler{f: f},
			&ManualGlucoseHandler{f: f},
			&AlertHandler{f: f},
			&DailyDoseHandler{f: f},
		},
	}
}

// Claims reports whether any handler accepts the event. Unclaimed events
// are dropped without error; the orchestrator meters the drop rate.
func (d *Dispatcher) Claims(ev models.RawDeviceEvent) bool {
	for _, h := range d.handlers {
		if h.CanHandle(ev) {
			return true
		}
	}
	return false
}

// Dispatch runs the per-event pass. BuildContext must have seen the same
// batch first.
func (d *Dispatcher) Dispatch(events []models.RawDeviceEvent, ctx *Context) []models.Record {
	var records []models.Record
	for _, ev := range events {
		for _, h := range d.handlers {
			if !h.CanHandle(ev) {
				continue
			}
			records = append(records, h.Handle(ev, ctx)...)
		}
	}
	return records
}
