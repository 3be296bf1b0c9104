package aggregator

// RawRecord is one metadata record returned by the graph store, grouped
// under its "package" and "version" facets. Most fields in the store's
// schema are multi-valued: an ordered list whose only meaningful value is
// at index 0. That convention is a storage artifact, so reads go through
// [Facet] accessors that take index 0 with a caller-supplied default
// instead of repeating index/default boilerplate at every call site.
type RawRecord struct {
	Package Facet `json:"package"`
	Version Facet `json:"version"`
}

// Facet is one multi-valued field group of a RawRecord.
type Facet map[string]any

// first returns the first element of the list stored under key, or nil
// if the key is absent, not a list, or the list is empty. A bare scalar
// value (some store deployments unwrap single values) is returned as-is.
func (f Facet) first(key string) any {
	v, ok := f[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []any:
		if len(list) == 0 {
			return nil
		}
		return list[0]
	default:
		return v
	}
}

// String returns the first value under key as a string, or def.
func (f Facet) String(key, def string) string {
	if s, ok := f.first(key).(string); ok {
		return s
	}
	return def
}

// Int returns the first value under key as an int, or def.
// JSON numbers decode as float64, so both numeric forms are accepted.
func (f Facet) Int(key string, def int) int {
	switch n := f.first(key).(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

// Float returns the first value under key as a float64, or def.
func (f Facet) Float(key string, def float64) float64 {
	switch n := f.first(key).(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

// Strings returns the full list stored under key with every element
// coerced to a string; non-string elements are skipped. Absent or
// malformed values yield an empty slice, never nil panics.
func (f Facet) Strings(key string) []string {
	v, ok := f[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
