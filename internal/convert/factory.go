package convert

import (
	"time"

	"pump-sync/internal/models"

	"github.com/google/uuid"
)

// legacyKeyPrefix namespaces idempotency keys so records from this connector
// never collide with entries uploaded by other tools.
const legacyKeyPrefix = "pumpsync::"

// vendorEpoch is the zero point of the pump's internal clock. DeviceTicks
// count seconds from here.
var vendorEpoch = time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)

// EventTime converts a raw event's device clock ticks to absolute time.
func EventTime(ev models.RawDeviceEvent) time.Time {
	return vendorEpoch.Add(time.Duration(ev.DeviceTicks) * time.Second)
}

// Factory builds the base fields of every canonical record so all handlers
// produce consistently identified output. The clock and id generator are
// swappable for tests.
type Factory struct {
	source string
	now    func() time.Time
	newID  func() string
}

func NewFactory(source string) *Factory {
	return &Factory{
		source: source,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Base derives the shared record fields from a raw event. The legacy key is
// a pure function of the event key, so reprocessing the same event yields
// the same key.
func (f *Factory) Base(ev models.RawDeviceEvent) models.RecordBase {
	now := f.now().UTC()
	return models.RecordBase{
		ID:         f.newID(),
		LegacyKey:  legacyKeyPrefix + ev.EventKey,
		Time:       EventTime(ev),
		Source:     f.source,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// BaseWithSuffix is Base with "-{suffix}" appended to the legacy key, used
// when one raw event yields a secondary record of the same kind.
func (f *Factory) BaseWithSuffix(ev models.RawDeviceEvent, suffix string) models.RecordBase {
	base := f.Base(ev)
	base.LegacyKey += "-" + suffix
	return base
}

// CorrelationID mints the shared identifier linking sibling records derived
// from one raw event.
func (f *Factory) CorrelationID() string {
	return f.newID()
}
