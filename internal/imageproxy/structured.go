package imageproxy

// Value is a closed variant over the shapes found in decoded API payloads.
type Value interface {
	isValue()
}

type (
	String   string
	Sequence []Value
	Mapping  map[string]Value
	// Other carries numbers, booleans, nil and anything else untouched.
	Other struct{ V any }
)

func (String) isValue()   {}
func (Sequence) isValue() {}
func (Mapping) isValue()  {}
func (Other) isValue()    {}

// Transform rebuilds v bottom-up, applying leaf to every String. The input
// is never modified.
func Transform(v Value, leaf func(string) string) Value {
	switch t := v.(type) {
	case String:
		return String(leaf(string(t)))
	case Sequence:
		if t == nil {
			return t
		}
		out := make(Sequence, len(t))
		for i, item := range t {
			out[i] = Transform(item, leaf)
		}
		return out
	case Mapping:
		if t == nil {
			return t
		}
		out := make(Mapping, len(t))
		for k, item := range t {
			out[k] = Transform(item, leaf)
		}
		return out
	default:
		return v
	}
}

// RewriteStructured applies RewriteURL to every string leaf.
func RewriteStructured(v Value) Value {
	return Transform(v, RewriteURL)
}

// FromAny converts the output of encoding/json into a Value.
func FromAny(x any) Value {
	switch t := x.(type) {
	case string:
		return String(t)
	case []any:
		out := make(Sequence, len(t))
		for i, item := range t {
			out[i] = FromAny(item)
		}
		return out
	case map[string]any:
		out := make(Mapping, len(t))
		for k, item := range t {
			out[k] = FromAny(item)
		}
		return out
	default:
		return Other{V: x}
	}
}

// ToAny is the inverse of FromAny.
func ToAny(v Value) any {
	switch t := v.(type) {
	case String:
		return string(t)
	case Sequence:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToAny(item)
		}
		return out
	case Mapping:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ToAny(item)
		}
		return out
	case Other:
		return t.V
	default:
		return nil
	}
}
