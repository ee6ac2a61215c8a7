package signals

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Kind tags the JSON shape of a signal value.
type Kind int

const (
	KindAbsent Kind = iota
	KindObject
	KindNumber
	KindBoolean
	KindString
	KindList
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "absent"
	}
}

// ParseKind maps a configured kind to a Kind. "any" and unknown names return
// false.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "object":
		return KindObject, true
	case "number":
		return KindNumber, true
	case "boolean":
		return KindBoolean, true
	case "string":
		return KindString, true
	case "list":
		return KindList, true
	default:
		return KindAbsent, false
	}
}

// Value is one decoded signal component.
type Value struct {
	kind Kind
	num  float64
	b    bool
	str  string

	// size is the number of members of an object or list.
	size int
}

// Absent is the zero Value.
var Absent = Value{}

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Boolean returns a boolean value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, b: b} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Object returns an object value with n members.
func Object(n int) Value { return Value{kind: KindObject, size: n} }

// List returns a list value with n elements.
func List(n int) Value { return Value{kind: KindList, size: n} }

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// Present reports whether the value counts as usable data.
func (v Value) Present() bool {
	switch v.kind {
	case KindObject, KindList:
		return v.size > 0
	case KindNumber, KindBoolean:
		return true
	case KindString:
		return v.str != ""
	default:
		return false
	}
}

// Float returns the numeric value and whether v is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// UnmarshalJSON tags the value by its JSON shape. Object and list contents
// are counted, not retained.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*v = Absent
		return nil
	}

	switch data[0] {
	case 'n':
		*v = Absent
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		*v = Object(len(m))
	case '[':
		var l []json.RawMessage
		if err := json.Unmarshal(data, &l); err != nil {
			return err
		}
		*v = List(len(l))
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Boolean(b)
	default:
		// Out-of-range numbers parse to ±Inf and are still data.
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return fmt.Errorf("invalid signal value %s: %w", data, err)
		}
		*v = Number(n)
	}
	return nil
}
