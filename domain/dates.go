package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// dateKeys are the card and patch fields holding timestamps
var dateKeys = map[string]bool{
	"createdAt":        true,
	"lastModified":     true,
	"lastInteraction":  true,
	"dueDate":          true,
	"appointmentDate":  true,
	"proposalSentDate": true,
	"installedDate":    true,
	"installationDate": true,
	"eventDate":        true,
}

// coerceDates rewrites date-like strings such as "2024-05-01" or "05/01/2024" under the date
// keys of a JSON object into RFC 3339, walking nested objects. Empty strings become null.
// Dates without a zone are read as UTC.
func coerceDates(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return data, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}

	changed := false
	for key, raw := range obj {
		value := bytes.TrimSpace(raw)
		if len(value) == 0 {
			continue
		}
		switch {
		case value[0] == '{':
			inner, err := coerceDates(value)
			if err != nil {
				return nil, err
			}
			if !bytes.Equal(inner, value) {
				obj[key] = inner
				changed = true
			}
		case value[0] == '"' && dateKeys[key]:
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, err
			}
			if s == "" {
				obj[key] = json.RawMessage("null")
				changed = true
				continue
			}
			if _, err := time.Parse(time.RFC3339Nano, s); err == nil {
				continue
			}
			parsed, err := dateparse.ParseIn(s, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("%w: %s %q is not a date", ErrInvalidValue, key, s)
			}
			encoded, err := json.Marshal(parsed.UTC())
			if err != nil {
				return nil, err
			}
			obj[key] = encoded
			changed = true
		}
	}
	if !changed {
		return data, nil
	}
	return json.Marshal(obj)
}
