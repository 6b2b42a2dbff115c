package sim

import (
	"fmt"
	"math"
)

// Kind is the value type carried by a Node.
type Kind int

const (
	// KindNumber nodes hold a float64.
	KindNumber Kind = iota
	// KindBoolean nodes hold 0 or 1 as a float64.
	KindBoolean
	// KindOpaque nodes hold any Go value and are never converted.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindOpaque:
		return "opaque"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// toFloat converts the numeric Go types a combinator may reasonably return.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// conform coerces v into the representation required by kind.
// Number and boolean nodes accept only scalar numerics (and bool); anything
// else, slices and tuples included, is rejected.
func conform(kind Kind, v any) (any, error) {
	if kind == KindOpaque {
		return v, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, fmt.Errorf("%w: got %T for a %s node", ErrNonConforming, v, kind)
	}
	if math.IsNaN(f) {
		return nil, fmt.Errorf("%w: NaN for a %s node", ErrNonConforming, kind)
	}
	if kind == KindBoolean {
		if f != 0 {
			return 1.0, nil
		}
		return 0.0, nil
	}
	return f, nil
}
