package convert

import (
	"strconv"
	"strings"
)

// Payload is the parsed form of a raw event's DeviceInfo field: vendor logs
// embed "KEY=value, KEY2=value2" pairs in a single string. Accessors return
// an ok flag instead of an error so that malformed data degrades to absent
// fields rather than failing the event.
type Payload map[string]string

// ParsePayload never fails: segments without a '=' are skipped, and a string
// with no recognizable pairs yields an empty payload, leaving the caller to
// treat the raw text as opaque.
func ParsePayload(raw string) Payload {
	p := Payload{}
	for _, segment := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(segment, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		p[key] = strings.TrimSpace(value)
	}
	return p
}

func (p Payload) String(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

func (p Payload) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (p Payload) Bool(key string) bool {
	v, ok := p[key]
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// parseScalar reads an event's ScalarValue. The empty string and
// non-numeric text both report !ok, per the degrade-to-no-output policy.
func parseScalar(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
