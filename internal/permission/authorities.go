package permission

import "sort"

// Authorities is a set of authority strings.
type Authorities map[string]struct{}

func NewAuthorities(values ...string) Authorities {
	a := make(Authorities, len(values))
	a.Add(values...)
	return a
}

func (a Authorities) Add(values ...string) {
	for _, v := range values {
		if v != "" {
			a[v] = struct{}{}
		}
	}
}

func (a Authorities) Has(value string) bool {
	_, ok := a[value]
	return ok
}

// Sorted returns the authorities in lexical order.
func (a Authorities) Sorted() []string {
	out := make([]string, 0, len(a))
	for v := range a {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (a Authorities) Equal(other Authorities) bool {
	if len(a) != len(other) {
		return false
	}
	for v := range a {
		if !other.Has(v) {
			return false
		}
	}
	return true
}
