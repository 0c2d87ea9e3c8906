package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePayloadPairs(t *testing.T) {
	p := ParsePayload("RATE=1.25, PERCENT=50,DURATION_MIN=30, TARGET=CANNULA")

	rate, ok := p.Float("RATE")
	assert.True(t, ok)
	assert.InDelta(t, 1.25, rate, 0.0001)

	target, ok := p.String("TARGET")
	assert.True(t, ok)
	assert.Equal(t, "CANNULA", target)
}

func TestParsePayloadSkipsMalformedSegments(t *testing.T) {
	p := ParsePayload("garbage, RATE=0.5, also garbage")
	assert.Len(t, p, 1)

	rate, ok := p.Float("RATE")
	assert.True(t, ok)
	assert.InDelta(t, 0.5, rate, 0.0001)
}

func TestParsePayloadOpaqueText(t *testing.T) {
	p := ParsePayload("low cartridge warning")
	assert.Empty(t, p)
}

func TestFloatRejectsNonNumeric(t *testing.T) {
	p := ParsePayload("RATE=abc")
	_, ok := p.Float("RATE")
	assert.False(t, ok)
}

func TestBool(t *testing.T) {
	p := ParsePayload("WIZARD=1, OTHER=0, WORD=true")
	assert.True(t, p.Bool("WIZARD"))
	assert.True(t, p.Bool("WORD"))
	assert.False(t, p.Bool("OTHER"))
	assert.False(t, p.Bool("MISSING"))
}

func TestParseScalar(t *testing.T) {
	v, ok := parseScalar(" 1.2 ")
	assert.True(t, ok)
	assert.InDelta(t, 1.2, v, 0.0001)

	_, ok = parseScalar("")
	assert.False(t, ok)

	_, ok = parseScalar("n/a")
	assert.False(t, ok)
}
