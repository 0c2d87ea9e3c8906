package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// ScheduleEntry is one segment of a daily basal program. Minutes is the
// segment start as minutes after midnight.
type ScheduleEntry struct {
	Minutes int     `json:"minutes"`
	Rate    float64 `json:"rate"`
}

// BasalProfile is the subject's programmed basal schedule. Percent-only temp
// rate programs are resolved against it.
type BasalProfile struct {
	CurrentRate float64
	Schedule    []ScheduleEntry
}

// Parse decodes a schedule from its JSON form, e.g.
// [{"minutes":0,"rate":0.8},{"minutes":360,"rate":1.0}].
// An empty string yields a profile that always answers with currentRate.
func Parse(raw string, currentRate float64) (*BasalProfile, error) {
	p := &BasalProfile{CurrentRate: currentRate}
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p.Schedule); err != nil {
		return nil, fmt.Errorf("invalid basal schedule: %w", err)
	}
	sort.Slice(p.Schedule, func(i, j int) bool {
		return p.Schedule[i].Minutes < p.Schedule[j].Minutes
	})
	return p, nil
}

// RateAt returns the scheduled rate at the given time of day, rounded to
// three decimals. Falls back to CurrentRate when the schedule is empty.
func (p *BasalProfile) RateAt(t time.Time) float64 {
	if p == nil || len(p.Schedule) == 0 {
		if p == nil {
			return 0
		}
		return p.CurrentRate
	}

	nowMinutes := t.UTC().Hour()*60 + t.UTC().Minute()

	// Default to the last segment, which wraps past midnight.
	rate := p.Schedule[len(p.Schedule)-1].Rate
	for i, entry := range p.Schedule {
		nextMinutes := 24 * 60
		if i+1 < len(p.Schedule) {
			nextMinutes = p.Schedule[i+1].Minutes
		}
		if nowMinutes >= entry.Minutes && nowMinutes < nextMinutes {
			rate = entry.Rate
			break
		}
	}
	return math.Round(rate*1000) / 1000
}
