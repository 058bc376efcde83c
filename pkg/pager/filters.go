package pager

import (
	"net/url"
	"slices"
)

// Filters is the set of query parameters a list is fetched under.
// Equality is structural: same keys, same values in the same order.
// A nil Filters and an empty one are equal.
type Filters map[string][]string

// FiltersFromValues copies url.Values into Filters.
func FiltersFromValues(v url.Values) Filters {
	return Filters(v).Clone()
}

// Get returns the first value for key, or "".
func (f Filters) Get(key string) string {
	if vs := f[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// With returns a copy of f with key set to values. An empty values list
// removes the key.
func (f Filters) With(key string, values ...string) Filters {
	out := f.Clone()
	if out == nil {
		out = Filters{}
	}
	if len(values) == 0 {
		delete(out, key)
		return out
	}
	out[key] = slices.Clone(values)
	return out
}

// Equal reports whether f and other hold the same keys and values.
func (f Filters) Equal(other Filters) bool {
	if len(f) != len(other) {
		return false
	}
	for key, vs := range f {
		ovs, ok := other[key]
		if !ok || !slices.Equal(vs, ovs) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of f.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for key, vs := range f {
		out[key] = slices.Clone(vs)
	}
	return out
}

// Values returns f as url.Values, ready to be merged into a request query.
func (f Filters) Values() url.Values {
	return url.Values(f.Clone())
}

// Encode returns the sorted URL encoding of f. It doubles as a stable string
// form for logging.
func (f Filters) Encode() string {
	return url.Values(f).Encode()
}
