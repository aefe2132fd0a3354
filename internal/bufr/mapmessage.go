package bufr

import "strings"

// MapMessage is an in-memory decoded message: ordered header keys followed
// by ordered data keys, each data key optionally carrying its descriptor code
// and units.
type MapMessage struct {
	header []string
	data   []string
	values map[string]any
	codes  map[string]any
	units  map[string]string
}

// NewMapMessage returns an empty message.
func NewMapMessage() *MapMessage {
	return &MapMessage{
		values: make(map[string]any),
		codes:  make(map[string]any),
		units:  make(map[string]string),
	}
}

// SetHeader appends (or overwrites) a header key.
func (m *MapMessage) SetHeader(key string, value any) *MapMessage {
	if _, ok := m.values[key]; !ok {
		m.header = append(m.header, key)
	}
	m.values[key] = value
	return m
}

// Add appends a data key. code may be nil for keys without a descriptor.
func (m *MapMessage) Add(key string, value any, code any, units string) *MapMessage {
	if _, ok := m.values[key]; !ok {
		m.data = append(m.data, key)
	}
	m.values[key] = value
	if code != nil {
		m.codes[key] = code
	}
	if units != "" {
		m.units[key] = units
	}
	return m
}

// Keys returns header keys then data keys, each in insertion order.
func (m *MapMessage) Keys() []string {
	keys := make([]string, 0, len(m.header)+len(m.data))
	keys = append(keys, m.header...)
	return append(keys, m.data...)
}

// HeaderKeys implements Headered.
func (m *MapMessage) HeaderKeys() []string { return m.header }

// Get implements Message.
func (m *MapMessage) Get(key string) (any, error) {
	if base, ok := strings.CutSuffix(key, codeSuffix); ok {
		if c, ok := m.codes[base]; ok {
			return c, nil
		}
		return nil, ErrKeyNotFound
	}
	if base, ok := strings.CutSuffix(key, unitsSuffix); ok {
		if u, ok := m.units[base]; ok {
			return u, nil
		}
		return nil, ErrKeyNotFound
	}
	v, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}
