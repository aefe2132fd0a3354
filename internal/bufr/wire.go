package bufr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// wireEntry is one data-section key in the JSON wire form.
type wireEntry struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
	Code  json.RawMessage `json:"code,omitempty"`
	Units string          `json:"units,omitempty"`
}

type wireMessage struct {
	Header json.RawMessage `json:"header"`
	Data   []wireEntry     `json:"data"`
}

// DecodeJSON parses one decoded message in the wire form
//
//	{"header": {"edition": 4, ...}, "data": [{"key": "#1#latitude", "value": 51.5, "code": "005001", "units": "deg"}]}
//
// Header key order is preserved. Numbers become int64 when integral and
// float64 otherwise; arrays become []any.
func DecodeJSON(data []byte) (*MapMessage, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	m := NewMapMessage()
	if len(w.Header) > 0 {
		if err := decodeOrderedObject(w.Header, m.SetHeader); err != nil {
			return nil, fmt.Errorf("decode message header: %w", err)
		}
	}
	for i, e := range w.Data {
		if e.Key == "" {
			return nil, fmt.Errorf("decode message: data entry %d has no key", i)
		}
		v, err := decodeValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("decode message: key %q: %w", e.Key, err)
		}
		var code any
		if len(e.Code) > 0 {
			if code, err = decodeValue(e.Code); err != nil {
				return nil, fmt.Errorf("decode message: key %q code: %w", e.Key, err)
			}
		}
		m.Add(e.Key, v, code, e.Units)
	}
	return m, nil
}

// EncodeJSON renders a MapMessage in the wire form. Used by fixtures and
// the mock generator.
func EncodeJSON(m *MapMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"header":{`)
	for i, k := range m.header {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("encode header %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteString(`},"data":[`)
	for i, k := range m.data {
		if i > 0 {
			buf.WriteByte(',')
		}
		type entry struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
			Code  any    `json:"code,omitempty"`
			Units string `json:"units,omitempty"`
		}
		b, err := json.Marshal(entry{Key: k, Value: m.values[k], Code: m.codes[k], Units: m.units[k]})
		if err != nil {
			return nil, fmt.Errorf("encode key %q: %w", k, err)
		}
		buf.Write(b)
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}

func decodeOrderedObject(raw json.RawMessage, set func(string, any) *MapMessage) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("header must be an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected header token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("header %q: %w", key, err)
		}
		set(key, normalizeJSON(v))
	}
	_, err = dec.Token()
	return err
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeJSON(v), nil
}

func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i := range x {
			x[i] = normalizeJSON(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeJSON(x[k])
		}
		return x
	}
	return v
}
