package models

import "time"

// Vendor pump event type codes as they appear in the raw log stream.
const (
	EventBolusCompleted   = 64
	EventBasalDelivered   = 16
	EventTempRateProgram  = 2
	EventCarbEntered      = 256
	EventIndication       = 4
	EventPriming          = 59
	EventPumpSuspended    = 11
	EventPumpResumed      = 12
	EventCartridgeChanged = 33
	EventClockChanged     = 13
	EventManualGlucose    = 32
	EventAlarmRaised      = 90
	EventDailyTotalDose   = 1152
)

// RawDeviceEvent is one vendor log entry before normalization. Events arrive
// already parsed out of the vendor wire format; this service only reads them.
type RawDeviceEvent struct {
	EventTypeCode int    `json:"eventTypeCode"`
	DeviceTicks   int64  `json:"deviceTicks"` // seconds since the vendor epoch (2008-01-01 UTC)
	ScalarValue   string `json:"scalarValue,omitempty"`
	DeviceInfo    string `json:"deviceInfo,omitempty"` // "KEY=value, KEY2=value2" pairs
	EventKey      string `json:"eventKey"`             // stable across re-fetches of the same log entry
}

// RawEventBatch is the Kafka message the upstream fetcher publishes: one
// subject's raw events for a sync window.
type RawEventBatch struct {
	SubjectID string           `json:"subjectId"`
	Source    string           `json:"source,omitempty"`
	Events    []RawDeviceEvent `json:"events"`
}

// RecordKind tags the concrete type of a canonical record.
type RecordKind string

const (
	KindTreatment        RecordKind = "treatment"
	KindBasalDelivery    RecordKind = "basal_delivery"
	KindNote             RecordKind = "note"
	KindDeviceEvent      RecordKind = "device_event"
	KindCarbIntake       RecordKind = "carb_intake"
	KindBolus            RecordKind = "bolus"
	KindBolusCalculation RecordKind = "bolus_calculation"
)

// RecordBase carries the fields every canonical record shares.
type RecordBase struct {
	ID         string    `json:"id"`
	LegacyKey  string    `json:"legacyKey"` // idempotency key, stable across reprocessing
	Time       time.Time `json:"time"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Record is the canonical output unit handed to the persistence layer.
type Record interface {
	Base() *RecordBase
	Kind() RecordKind
}

// Treatment event types, following the Nightscout vocabulary.
const (
	TreatmentMealBolus       = "Meal Bolus"
	TreatmentCorrectionBolus = "Correction Bolus"
	TreatmentCarbCorrection  = "Carb Correction"
	TreatmentTempBasal       = "Temp Basal"
	TreatmentBGCheck         = "BG Check"
	TreatmentProfileSwitch   = "Profile Switch"
)

// Treatment is a discrete clinical event. Zero-valued numeric fields mean
// "absent" except Rate and Percent, which use pointers because zero is a
// meaningful value for suspended temp rates.
type Treatment struct {
	RecordBase
	EventType       string              `json:"eventType"`
	Insulin         float64             `json:"insulin,omitempty"`
	Carbs           float64             `json:"carbs,omitempty"`
	DurationMinutes float64             `json:"duration,omitempty"`
	Rate            *float64            `json:"rate,omitempty"`
	Percent         *float64            `json:"percent,omitempty"`
	Profile         string              `json:"profile,omitempty"`
	Glucose         float64             `json:"glucose,omitempty"`
	GlucoseType     string              `json:"glucoseType,omitempty"`
	Units           string              `json:"units,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	Calculation     *CalculatorSnapshot `json:"calculation,omitempty"`
}

func (t *Treatment) Base() *RecordBase { return &t.RecordBase }
func (t *Treatment) Kind() RecordKind  { return KindTreatment }

// CalculatorSnapshot captures the bolus calculator inputs attached to a
// calculator-driven dose.
type CalculatorSnapshot struct {
	GlucoseInput    *float64 `json:"glucoseInput,omitempty"`
	CarbInput       *float64 `json:"carbInput,omitempty"`
	InsulinOnBoard  *float64 `json:"insulinOnBoard,omitempty"`
	RecommendedDose *float64 `json:"recommendedDose,omitempty"`
}

// Empty reports whether no calculator input could be extracted.
func (s *CalculatorSnapshot) Empty() bool {
	return s.GlucoseInput == nil && s.CarbInput == nil &&
		s.InsulinOnBoard == nil && s.RecommendedDose == nil
}

// BasalOrigin classifies how a delivery span came to be.
type BasalOrigin string

const (
	OriginScheduled BasalOrigin = "Scheduled"
	OriginManual    BasalOrigin = "Manual"
	OriginSuspended BasalOrigin = "Suspended"
)

// BasalDelivery asserts a continuous insulin delivery rate over a span of
// time. EndMills is nil when the span is open-ended; downstream
// post-processing closes it when the next span begins.
type BasalDelivery struct {
	RecordBase
	StartMills int64              `json:"startMills"`
	EndMills   *int64             `json:"endMills,omitempty"`
	Rate       float64            `json:"rate"`
	Origin     BasalOrigin        `json:"origin"`
	Metadata   map[string]float64 `json:"metadata,omitempty"`
}

func (b *BasalDelivery) Base() *RecordBase { return &b.RecordBase }
func (b *BasalDelivery) Kind() RecordKind  { return KindBasalDelivery }

// Note is free text from the pump, optionally categorized.
type Note struct {
	RecordBase
	Text         string `json:"text"`
	Category     string `json:"category,omitempty"`
	Announcement bool   `json:"announcement,omitempty"`
}

func (n *Note) Base() *RecordBase { return &n.RecordBase }
func (n *Note) Kind() RecordKind  { return KindNote }

// DeviceEvent marks a pump lifecycle moment (site change, priming, suspend,
// clock change).
type DeviceEvent struct {
	RecordBase
	EventType string `json:"eventType"`
	Notes     string `json:"notes,omitempty"`
}

func (d *DeviceEvent) Base() *RecordBase { return &d.RecordBase }
func (d *DeviceEvent) Kind() RecordKind  { return KindDeviceEvent }

// CarbIntake is the fine-grained carbohydrate record of the domain model.
type CarbIntake struct {
	RecordBase
	CorrelationID string  `json:"correlationId,omitempty"`
	Grams         float64 `json:"grams"`
}

func (c *CarbIntake) Base() *RecordBase { return &c.RecordBase }
func (c *CarbIntake) Kind() RecordKind  { return KindCarbIntake }

// Bolus is the fine-grained insulin dose record of the domain model.
type Bolus struct {
	RecordBase
	CorrelationID string  `json:"correlationId,omitempty"`
	Units         float64 `json:"units"`
	SubType       string  `json:"subType,omitempty"`
}

func (b *Bolus) Base() *RecordBase { return &b.RecordBase }
func (b *Bolus) Kind() RecordKind  { return KindBolus }

// BolusCalculation records the calculator inputs that produced a bolus,
// linked to its siblings through CorrelationID.
type BolusCalculation struct {
	RecordBase
	CorrelationID string `json:"correlationId,omitempty"`
	CalculatorSnapshot
}

func (b *BolusCalculation) Base() *RecordBase { return &b.RecordBase }
func (b *BolusCalculation) Kind() RecordKind  { return KindBolusCalculation }

// SubjectState tracks one subject's sync session, restored from the DB at
// startup.
type SubjectState struct {
	SubjectID     string
	DeviceID      string
	Status        string
	StartTime     int64
	EndTime       *int64
	LastEventTime *int64
}

// SyncStartPayload arrives on the MQTT sync_start topic.
type SyncStartPayload struct {
	SubjectID string `json:"subjectId"`
	DeviceID  string `json:"deviceId"`
	Source    string `json:"source,omitempty"`
}

// SyncActionPayload arrives on the MQTT sync_action topic.
type SyncActionPayload struct {
	SubjectID string `json:"subjectId"`
	Action    string `json:"action"` // "stop" or "resume"
}
