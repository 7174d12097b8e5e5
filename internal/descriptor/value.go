// Package descriptor implements the project.json output format
// (spec.md §4.8): a tree of flattened octree node positions plus a
// row-major matrix of typed per-segment trait values.
package descriptor

import (
	"encoding/json"
	"fmt"
)

// Value is a typed, displayable measurement attached to a segment trait.
// It mirrors an externally-tagged union: on the wire each variant is a
// single-key JSON object, e.g. {"Meters": 1.23} or
// {"RelativeHeight": {"absolute": 1.0, "percent": 0.4}}.
type Value struct {
	kind  valueKind
	index uint32
	f32   float32
	f64   float64
	abs   float32
	pct   float32
}

type valueKind uint8

const (
	kindIndex valueKind = iota
	kindPercent
	kindRelativeHeight
	kindMeters
	kindMetersSquared
	kindAbsolutePosition
	kindDegrees
)

func Index(v uint32) Value              { return Value{kind: kindIndex, index: v} }
func Percent(v float32) Value           { return Value{kind: kindPercent, f32: v} }
func Meters(v float32) Value            { return Value{kind: kindMeters, f32: v} }
func MetersSquared(v float32) Value     { return Value{kind: kindMetersSquared, f32: v} }
func AbsolutePosition(v float64) Value  { return Value{kind: kindAbsolutePosition, f64: v} }
func Degrees(v float64) Value           { return Value{kind: kindDegrees, f64: v} }

// RelativeHeight records a height both in meters and as a fraction of
// the segment's total height.
func RelativeHeight(absolute, percent float32) Value {
	return Value{kind: kindRelativeHeight, abs: absolute, pct: percent}
}

type relativeHeightWire struct {
	Absolute float32 `json:"absolute"`
	Percent  float32 `json:"percent"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindIndex:
		return json.Marshal(map[string]uint32{"Index": v.index})
	case kindPercent:
		return json.Marshal(map[string]float32{"Percent": v.f32})
	case kindRelativeHeight:
		return json.Marshal(map[string]relativeHeightWire{
			"RelativeHeight": {Absolute: v.abs, Percent: v.pct},
		})
	case kindMeters:
		return json.Marshal(map[string]float32{"Meters": v.f32})
	case kindMetersSquared:
		return json.Marshal(map[string]float32{"MetersSquared": v.f32})
	case kindAbsolutePosition:
		return json.Marshal(map[string]float64{"AbsolutePosition": v.f64})
	case kindDegrees:
		return json.Marshal(map[string]float64{"Degrees": v.f64})
	default:
		return nil, fmt.Errorf("descriptor: unknown value kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("descriptor: value must have exactly one variant key, got %d", len(raw))
	}
	for key, payload := range raw {
		switch key {
		case "Index":
			var n uint32
			if err := json.Unmarshal(payload, &n); err != nil {
				return err
			}
			*v = Index(n)
		case "Percent":
			var n float32
			if err := json.Unmarshal(payload, &n); err != nil {
				return err
			}
			*v = Percent(n)
		case "RelativeHeight":
			var w relativeHeightWire
			if err := json.Unmarshal(payload, &w); err != nil {
				return err
			}
			*v = RelativeHeight(w.Absolute, w.Percent)
		case "Meters":
			var n float32
			if err := json.Unmarshal(payload, &n); err != nil {
				return err
			}
			*v = Meters(n)
		case "MetersSquared":
			var n float32
			if err := json.Unmarshal(payload, &n); err != nil {
				return err
			}
			*v = MetersSquared(n)
		case "AbsolutePosition":
			var n float64
			if err := json.Unmarshal(payload, &n); err != nil {
				return err
			}
			*v = AbsolutePosition(n)
		case "Degrees":
			var n float64
			if err := json.Unmarshal(payload, &n); err != nil {
				return err
			}
			*v = Degrees(n)
		default:
			return fmt.Errorf("descriptor: unknown value variant %q", key)
		}
	}
	return nil
}

// String renders the value as a display string with its unit suffix
// (m, m², %, °).
func (v Value) String() string {
	switch v.kind {
	case kindIndex:
		return fmt.Sprintf("%d", v.index)
	case kindPercent:
		return fmt.Sprintf("%.3f%%", v.f32*100)
	case kindRelativeHeight:
		return fmt.Sprintf("%.2fm (%.3f%%)", v.abs, v.pct*100)
	case kindMeters:
		return fmt.Sprintf("%.2fm", v.f32)
	case kindMetersSquared:
		return fmt.Sprintf("%.2fm²", v.f32)
	case kindAbsolutePosition:
		return fmt.Sprintf("%.5f", v.f64)
	case kindDegrees:
		return fmt.Sprintf("%.5f°", v.f64)
	default:
		return "<invalid value>"
	}
}

// Float32 extracts the scalar meters/percent payload for callers (the
// report package) that need a plain number rather than the Display
// string. It panics on the variants without a float32 payload (Index,
// AbsolutePosition, Degrees).
func (v Value) Float32() float32 {
	switch v.kind {
	case kindPercent, kindMeters, kindMetersSquared:
		return v.f32
	case kindRelativeHeight:
		return v.abs
	default:
		panic(fmt.Sprintf("descriptor: Float32 called on non-scalar value kind %d", v.kind))
	}
}
