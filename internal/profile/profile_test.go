package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() *BasalProfile {
	return &BasalProfile{
		CurrentRate: 1.0,
		Schedule: []ScheduleEntry{
			{Minutes: 0, Rate: 0.8},     // 00:00
			{Minutes: 360, Rate: 1.0},   // 06:00
			{Minutes: 720, Rate: 1.2},   // 12:00
			{Minutes: 1080, Rate: 0.9},  // 18:00
		},
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func TestRateAtMorning(t *testing.T) {
	assert.InDelta(t, 1.0, testProfile().RateAt(at(8, 0)), 0.001)
}

func TestRateAtAfternoon(t *testing.T) {
	assert.InDelta(t, 1.2, testProfile().RateAt(at(14, 0)), 0.001)
}

func TestRateAtNight(t *testing.T) {
	assert.InDelta(t, 0.8, testProfile().RateAt(at(3, 0)), 0.001)
}

func TestRateAtSegmentBoundary(t *testing.T) {
	assert.InDelta(t, 1.2, testProfile().RateAt(at(12, 0)), 0.001)
}

func TestEmptyScheduleUsesCurrentRate(t *testing.T) {
	p := &BasalProfile{CurrentRate: 0.75}
	assert.InDelta(t, 0.75, p.RateAt(time.Now()), 0.001)
}

func TestParseSortsEntries(t *testing.T) {
	p, err := Parse(`[{"minutes":720,"rate":1.2},{"minutes":0,"rate":0.8}]`, 1.0)
	require.NoError(t, err)
	require.Len(t, p.Schedule, 2)
	assert.Equal(t, 0, p.Schedule[0].Minutes)
	assert.InDelta(t, 0.8, p.RateAt(at(3, 0)), 0.001)
}

func TestParseEmpty(t *testing.T) {
	p, err := Parse("", 0.65)
	require.NoError(t, err)
	assert.InDelta(t, 0.65, p.RateAt(time.Now()), 0.001)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not json", 1.0)
	require.Error(t, err)
}
