package convert

import (
	"testing"
	"time"

	"pump-sync/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEventTime(t *testing.T) {
	ev := rawEvent(models.EventBolusCompleted, 3600, "", "", "k1")
	assert.Equal(t, time.Date(2008, 1, 1, 1, 0, 0, 0, time.UTC), EventTime(ev))
}

func TestBaseFields(t *testing.T) {
	f := testFactory()
	ev := rawEvent(models.EventBolusCompleted, 3600, "", "", "seq-42")

	base := f.Base(ev)
	assert.Equal(t, "id-1", base.ID)
	assert.Equal(t, "pumpsync::seq-42", base.LegacyKey)
	assert.Equal(t, "pump-sync-test", base.Source)
	assert.Equal(t, EventTime(ev), base.Time)
	assert.Equal(t, base.CreatedAt, base.ModifiedAt)
}

func TestBaseWithSuffix(t *testing.T) {
	f := testFactory()
	ev := rawEvent(models.EventPriming, 3600, "", "", "seq-42")

	base := f.BaseWithSuffix(ev, "site")
	assert.Equal(t, "pumpsync::seq-42-site", base.LegacyKey)
}

func TestLegacyKeyStableAcrossReprocessing(t *testing.T) {
	ev := rawEvent(models.EventBolusCompleted, 3600, "", "", "seq-42")

	first := testFactory().Base(ev)
	second := testFactory().Base(ev)
	assert.Equal(t, first.LegacyKey, second.LegacyKey)
}
