// Package payload implements the card-description convention: every domain
// record is a JSON object serialized into the free-text desc field of a
// Trello card, carrying a type discriminant and an append-only audit trail.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed reports a description that is non-blank but not valid JSON.
var ErrMalformed = errors.New("payload: malformed JSON")

// Payload is the decoded record. Any field may be absent; accessors return
// zero values for missing or mistyped fields.
type Payload map[string]any

// Parse decodes a card description. Blank input yields (empty, nil); corrupt
// input yields (empty, ErrMalformed) so callers can tell the two apart.
func Parse(desc string) (Payload, error) {
	s := strings.TrimSpace(desc)
	if s == "" {
		return Payload{}, nil
	}
	var p Payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return Payload{}, ErrMalformed
	}
	if p == nil {
		return Payload{}, nil
	}
	return p, nil
}

// ParseLenient is the use-empty fallback policy: corruption is swallowed and
// an empty record returned. Views use this; availability over strictness.
func ParseLenient(desc string) Payload {
	p, _ := Parse(desc)
	return p
}

// Dump encodes a payload as indented JSON. HTML escaping is off so accented
// and non-Latin text survives verbatim in the card description.
func Dump(p Payload) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}

// NowISO is the audit timestamp format: UTC, second precision, Z-suffixed.
func NowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// AddAudit appends one entry to the payload's audit trail. The trail is
// append-only; existing entries are never touched.
func AddAudit(p Payload, by, action string, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	entry := map[string]any{
		"at":     NowISO(),
		"by":     by,
		"action": action,
		"meta":   meta,
	}
	trail, _ := p["audit"].([]any)
	p["audit"] = append(trail, entry)
}

// Audit returns the current trail; entries that do not decode to objects are
// skipped.
func (p Payload) Audit() []map[string]any {
	raw, _ := p["audit"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Type returns the record discriminant, honoring both the "_type" and the
// older "type" key.
func (p Payload) Type() string {
	if t, ok := p["_type"].(string); ok && t != "" {
		return t
	}
	t, _ := p["type"].(string)
	return t
}

// Str returns a string field, empty when absent or not a string.
func (p Payload) Str(key string) string {
	v, _ := p[key].(string)
	return v
}

// Num returns a numeric field. JSON numbers, integers and numeric strings
// all count; anything else is zero.
func (p Payload) Num(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// Bool returns a boolean field, false when absent or mistyped.
func (p Payload) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// Sub returns a nested object field, empty when absent.
func (p Payload) Sub(key string) Payload {
	if m, ok := p[key].(map[string]any); ok {
		return Payload(m)
	}
	return Payload{}
}
