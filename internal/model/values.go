package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Absent marks a missing numeric value. Arrays keep one slot per date, so a
// missing value is stored as Absent rather than dropped.
var Absent = math.NaN()

// Finite reports whether v is a usable number.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Values is a date-aligned numeric array. Non-finite entries encode as JSON
// null and null decodes back to Absent.
type Values []float64

// NewValues returns n Absent slots.
func NewValues(n int) Values {
	v := make(Values, n)
	for i := range v {
		v[i] = Absent
	}
	return v
}

// FromPointers converts nullable numbers into a Values array.
func FromPointers(ptrs []*float64) Values {
	v := make(Values, len(ptrs))
	for i, p := range ptrs {
		if p == nil {
			v[i] = Absent
			continue
		}
		v[i] = *p
	}
	return v
}

// AnyFinite reports whether at least one entry is finite.
func (v Values) AnyFinite() bool {
	for _, x := range v {
		if Finite(x) {
			return true
		}
	}
	return false
}

func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	var b bytes.Buffer
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		if !Finite(x) {
			b.WriteString("null")
			continue
		}
		b.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

func (v *Values) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromPointers(raw)
	return nil
}

// Float returns a pointer to a copy of v, or nil when v is not finite.
func Float(v float64) *float64 {
	if !Finite(v) {
		return nil
	}
	return &v
}
