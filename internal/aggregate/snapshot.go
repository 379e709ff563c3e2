package aggregate

import (
	"encoding/json"
)

// Snapshot is the resolved value of every resource in one aggregation pass.
// Every requested key is present; degraded keys hold their fallback.
type Snapshot struct {
	order    []string
	values   map[string]any
	degraded map[string]error
}

func newSnapshot(n int) *Snapshot {
	return &Snapshot{
		order:    make([]string, 0, n),
		values:   make(map[string]any, n),
		degraded: make(map[string]error),
	}
}

func (s *Snapshot) set(key string, value any, err error) {
	if _, ok := s.values[key]; !ok {
		s.order = append(s.order, key)
	}
	s.values[key] = value
	if err != nil {
		s.degraded[key] = err
	} else {
		delete(s.degraded, key)
	}
}

// Len returns the number of resources in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.order)
}

// Keys returns resource keys in spec order.
func (s *Snapshot) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns the value stored for key.
func (s *Snapshot) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Records returns key's value as a record list, or nil if it is not one.
func (s *Snapshot) Records(key string) []Record {
	recs, _ := s.values[key].([]Record)
	return recs
}

// Degraded returns the keys that hold a fallback, in spec order.
func (s *Snapshot) Degraded() []string {
	var out []string
	for _, k := range s.order {
		if _, ok := s.degraded[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Err returns the failure that degraded key, if any.
func (s *Snapshot) Err(key string) error {
	return s.degraded[key]
}

// Values returns a shallow copy of the key to value mapping.
func (s *Snapshot) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Merge returns a new snapshot holding s with every key of other replaced or added.
// Neither input is modified.
func (s *Snapshot) Merge(other *Snapshot) *Snapshot {
	out := newSnapshot(len(s.order) + len(other.order))
	for _, k := range s.order {
		out.set(k, s.values[k], s.degraded[k])
	}
	for _, k := range other.order {
		out.set(k, other.values[k], other.degraded[k])
	}
	return out
}

// Only returns a new snapshot holding the given keys of s, in s's order.
// Keys missing from s are skipped.
func (s *Snapshot) Only(keys ...string) *Snapshot {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	out := newSnapshot(len(keys))
	for _, k := range s.order {
		if _, ok := want[k]; ok {
			out.set(k, s.values[k], s.degraded[k])
		}
	}
	return out
}

// MarshalJSON renders the resources plus the list of degraded keys.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	degraded := s.Degraded()
	if degraded == nil {
		degraded = []string{}
	}
	return json.Marshal(struct {
		Resources map[string]any `json:"resources"`
		Degraded  []string       `json:"degraded"`
	}{
		Resources: s.values,
		Degraded:  degraded,
	})
}
