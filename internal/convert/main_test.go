package convert

import (
	"fmt"
	"time"

	"pump-sync/internal/models"
	"pump-sync/internal/profile"
)

// testFactory returns a factory with a fixed clock and sequential ids so
// assertions are deterministic.
func testFactory() *Factory {
	f := NewFactory("pump-sync-test")
	f.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	n := 0
	f.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return f
}

func rawEvent(code int, ticks int64, scalar, info, key string) models.RawDeviceEvent {
	return models.RawDeviceEvent{
		EventTypeCode: code,
		DeviceTicks:   ticks,
		ScalarValue:   scalar,
		DeviceInfo:    info,
		EventKey:      key,
	}
}

func flatBasal(rate float64) *profile.BasalProfile {
	return &profile.BasalProfile{CurrentRate: rate}
}

func defaultConfig() Config {
	return Config{
		EnableManualBgSync:          true,
		EnableMealCarbConsolidation: true,
		Basal:                       flatBasal(1.0),
	}
}

func emptyContext(cfg Config) *Context {
	return BuildContext(cfg, nil)
}
