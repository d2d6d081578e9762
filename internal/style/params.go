package style

// Params is a style parameter map. Values arrive from config files and
// JSON control requests, so the getters tolerate the numeric types
// those decoders produce and fall back to a default otherwise.
type Params map[string]any

// Float returns the named parameter as float64, or def when absent or
// not numeric.
func (p Params) Float(name string, def float64) float64 {
	v, ok := p[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// Int returns the named parameter as int, or def.
func (p Params) Int(name string, def int) int {
	v, ok := p[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return def
	}
}

// Bool returns the named parameter as bool, or def.
func (p Params) Bool(name string, def bool) bool {
	if v, ok := p[name].(bool); ok {
		return v
	}
	return def
}

// String returns the named parameter as string, or def.
func (p Params) String(name string, def string) string {
	if v, ok := p[name].(string); ok && v != "" {
		return v
	}
	return def
}

// Clone returns a shallow copy. Used when the caller needs to merge
// extra keys without mutating the committed config.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
