package domain

// Observation is an insertion-ordered mapping from key name to a decoded
// scalar value. A nil value stands for an encoded missing-data value.
//
// Observations double as the extractor's working stack: entries are pushed
// with Set and undone with PopLast, so the most recently inserted key is
// always the first to go.
type Observation struct {
	keys   []string
	values map[string]any
}

// NewObservation returns an empty observation with room for n keys.
func NewObservation(n int) *Observation {
	return &Observation{
		keys:   make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

// Set stores value under name. Overwriting an existing key keeps its position.
func (o *Observation) Set(name string, value any) {
	if _, ok := o.values[name]; !ok {
		o.keys = append(o.keys, name)
	}
	o.values[name] = value
}

// Get returns the value for name and whether the key is present.
func (o *Observation) Get(name string) (any, bool) {
	v, ok := o.values[name]
	return v, ok
}

// Value returns the value for name, nil when absent.
func (o *Observation) Value(name string) any {
	return o.values[name]
}

// Has reports whether name is a key of the observation.
func (o *Observation) Has(name string) bool {
	_, ok := o.values[name]
	return ok
}

// HasAll reports whether every name is present.
func (o *Observation) HasAll(names []string) bool {
	for _, n := range names {
		if _, ok := o.values[n]; !ok {
			return false
		}
	}
	return true
}

// PopLast removes the most recently inserted key. It is a no-op on an empty
// observation.
func (o *Observation) PopLast() (string, any) {
	if len(o.keys) == 0 {
		return "", nil
	}
	last := o.keys[len(o.keys)-1]
	o.keys = o.keys[:len(o.keys)-1]
	v := o.values[last]
	delete(o.values, last)
	return last, v
}

// Len returns the number of keys.
func (o *Observation) Len() int { return len(o.keys) }

// Keys returns the keys in insertion order. The slice must not be modified.
func (o *Observation) Keys() []string { return o.keys }

// Clone returns an independent copy.
func (o *Observation) Clone() *Observation {
	c := &Observation{
		keys:   make([]string, len(o.keys)),
		values: make(map[string]any, len(o.values)),
	}
	copy(c.keys, o.keys)
	for k, v := range o.values {
		c.values[k] = v
	}
	return c
}

// Map returns a plain map copy, losing key order.
func (o *Observation) Map() map[string]any {
	m := make(map[string]any, len(o.values))
	for k, v := range o.values {
		m[k] = v
	}
	return m
}
