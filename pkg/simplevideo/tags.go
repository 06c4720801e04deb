package simplevideo

import (
	"encoding/json"
	"strings"
)

// Tags is an ordered set of strings. Order is kept for display; equality
// ignores it.
type Tags []string

// NewTags trims each value, drops empties and keeps the first occurrence of
// every duplicate.
func NewTags(values ...string) Tags {
	out := make(Tags, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Contains reports whether tag is in the set.
func (t Tags) Contains(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Equal compares two tag sets ignoring order.
func (t Tags) Equal(other Tags) bool {
	a, b := NewTags(t...), NewTags(other...)
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !b.Contains(v) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (t Tags) Clone() Tags {
	if t == nil {
		return Tags{}
	}
	out := make(Tags, len(t))
	copy(out, t)
	return out
}

func (t Tags) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(NewTags(t...)))
}

func (t *Tags) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*t = NewTags(values...)
	return nil
}
