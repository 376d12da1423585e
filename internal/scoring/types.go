package scoring

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var jsonNull = []byte("null")

// Number is a loosely typed numeric field. It accepts a JSON number, a
// numeric string, null or "". Anything else leaves it unset.
type Number struct {
	Float64 float64
	Valid   bool
}

// NewNumber returns a set Number
func NewNumber(v float64) Number {
	return Number{Float64: v, Valid: true}
}

// UnmarshalJSON never fails; unparseable input is treated as absent.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		raw = strings.TrimSpace(raw)
	} else {
		raw = string(data)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	*n = Number{Float64: v, Valid: true}
	return nil
}

// MarshalJSON writes null for an unset value
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return json.Marshal(n.Float64)
}

// Float returns the value or 0 when unset
func (n Number) Float() float64 {
	if !n.Valid {
		return 0
	}
	return n.Float64
}

// Value implements driver.Valuer
func (n Number) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Float64, nil
}

// Text is a loosely typed string field. Strings are kept as sent (trimmed),
// numbers and booleans keep their JSON spelling, blank or null is unset.
type Text struct {
	String string
	Valid  bool
}

// NewText returns a set Text
func NewText(s string) Text {
	return Text{String: s, Valid: true}
}

// UnmarshalJSON never fails; objects and arrays are treated as absent.
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = Text{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}

	var s string
	switch data[0] {
	case '"':
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
	case '{', '[':
		return nil
	default:
		s = string(data)
	}

	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	*t = Text{String: s, Valid: true}
	return nil
}

// MarshalJSON writes null for an unset value
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return jsonNull, nil
	}
	return json.Marshal(t.String)
}

// Value implements driver.Valuer
func (t Text) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.String, nil
}
