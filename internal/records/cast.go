package records

import (
	"encoding"
	"fmt"
	"strconv"
	"time"
)

// TimeLayout is used when a time.Time reaches the cast.
const TimeLayout = time.RFC3339Nano

// The From* functions are the per-type conversions behind Cast. None of them
// can fail.

// FromText returns s as text.
func FromText(s string) Value { return Text(s) }

// FromInt renders n in base 10.
func FromInt(n int64) Value { return Text(strconv.FormatInt(n, 10)) }

// FromUint renders n in base 10.
func FromUint(n uint64) Value { return Text(strconv.FormatUint(n, 10)) }

// FromFloat renders f with the fewest digits that round-trip, without an
// exponent (1.5, 0.1, 1000000).
func FromFloat(f float64) Value { return Text(strconv.FormatFloat(f, 'f', -1, 64)) }

// FromBool renders b as "true" or "false".
func FromBool(b bool) Value { return Text(strconv.FormatBool(b)) }

// FromTime renders t with TimeLayout.
func FromTime(t time.Time) Value { return Text(t.Format(TimeLayout)) }

// FromNull returns Absent. A missing value never becomes the string "null".
func FromNull() Value { return Absent }

// Cast converts any parser value to a bronze Value. It is total: every input
// yields a Value, and casting a Value returns it unchanged.
func Cast(v any) Value {
	switch t := v.(type) {
	case nil:
		return FromNull()
	case Value:
		return t
	case *Value:
		if t == nil {
			return FromNull()
		}
		return *t
	case string:
		return FromText(t)
	case *string:
		if t == nil {
			return FromNull()
		}
		return FromText(*t)
	case []byte:
		if t == nil {
			return FromNull()
		}
		return FromText(string(t))
	case bool:
		return FromBool(t)
	case int:
		return FromInt(int64(t))
	case int8:
		return FromInt(int64(t))
	case int16:
		return FromInt(int64(t))
	case int32:
		return FromInt(int64(t))
	case int64:
		return FromInt(t)
	case uint:
		return FromUint(uint64(t))
	case uint8:
		return FromUint(uint64(t))
	case uint16:
		return FromUint(uint64(t))
	case uint32:
		return FromUint(uint64(t))
	case uint64:
		return FromUint(t)
	case float32:
		return Text(strconv.FormatFloat(float64(t), 'f', -1, 32))
	case float64:
		return FromFloat(t)
	case time.Time:
		return FromTime(t)
	case encoding.TextMarshaler:
		b, err := t.MarshalText()
		if err != nil {
			return FromText(fmt.Sprint(t))
		}
		return FromText(string(b))
	case fmt.Stringer:
		return FromText(t.String())
	default:
		return FromText(fmt.Sprint(t))
	}
}

// CastRaw casts every cell of raw. The result shares raw's column slice.
func CastRaw(raw *Raw) *Set {
	if raw == nil {
		return &Set{}
	}
	out := &Set{
		Columns: raw.Columns,
		Rows:    make([][]Value, len(raw.Rows)),
	}
	for i, row := range raw.Rows {
		vals := make([]Value, len(raw.Columns))
		for j := range vals {
			if j < len(row) {
				vals[j] = Cast(row[j])
			}
		}
		out.Rows[i] = vals
	}
	return out
}
