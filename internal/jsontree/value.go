// Package jsontree decodes JSON into an order-preserving tagged value tree and
// searches it depth-first. Route exports nest containers at arbitrary depth, so
// adapters walk the tree instead of binding to a fixed schema.
package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Object:
		return "object"
	case Array:
		return "array"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Member is one key/value pair of an object, in document order.
type Member struct {
	Key   string
	Value Value
}

// Value is a decoded JSON value. Only the field matching Kind is meaningful.
type Value struct {
	Kind    Kind
	Bool    bool
	Num     json.Number
	Str     string
	Members []Member
	Items   []Value
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes a single JSON document. A leading UTF-8 BOM is ignored and
// trailing data after the document is an error.
func Parse(data []byte) (Value, error) {
	data = bytes.TrimPrefix(data, bom)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errors.New("jsontree: trailing data after document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return fromToken(dec, tok)
}

func fromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Value{Kind: Null}, nil
	case bool:
		return Value{Kind: Bool, Bool: t}, nil
	case json.Number:
		return Value{Kind: Number, Num: t}, nil
	case string:
		return Value{Kind: String, Str: t}, nil
	case json.Delim:
		switch t {
		case '{':
			v := Value{Kind: Object}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("jsontree: unexpected object key %v", kt)
				}
				child, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				v.Members = append(v.Members, Member{Key: key, Value: child})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return v, nil
		case '[':
			v := Value{Kind: Array}
			for dec.More() {
				child, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				v.Items = append(v.Items, child)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return v, nil
		}
	}
	return Value{}, fmt.Errorf("jsontree: unexpected token %v", tok)
}

// Get returns the value stored under key. Duplicate keys resolve to the last
// occurrence, as a map-based decoder would.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != Object {
		return Value{}, false
	}
	for i := len(v.Members) - 1; i >= 0; i-- {
		if v.Members[i].Key == key {
			return v.Members[i].Value, true
		}
	}
	return Value{}, false
}

// Has reports whether an object carries key.
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Text renders a scalar as display text: strings as-is, numbers in their
// source spelling, booleans as true/false, null and containers as "".
func (v Value) Text() string {
	switch v.Kind {
	case String:
		return v.Str
	case Number:
		return v.Num.String()
	case Bool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

// Float reads a number or a numeric string.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case Number:
		f, err := v.Num.Float64()
		return f, err == nil
	case String:
		f, err := strconv.ParseFloat(v.Str, 64)
		return f, err == nil
	}
	return 0, false
}

// Int reads an integral number or numeric string.
func (v Value) Int() (int64, bool) {
	switch v.Kind {
	case Number:
		if n, err := v.Num.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Num.Float64(); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	case String:
		n, err := strconv.ParseInt(v.Str, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// With returns a copy of an object with key set to val, replacing an existing
// member in place or appending a new one.
func (v Value) With(key string, val Value) Value {
	if v.Kind != Object {
		return v
	}
	out := Value{Kind: Object, Members: make([]Member, 0, len(v.Members)+1)}
	replaced := false
	for _, m := range v.Members {
		if m.Key == key {
			m.Value = val
			replaced = true
		}
		out.Members = append(out.Members, m)
	}
	if !replaced {
		out.Members = append(out.Members, Member{Key: key, Value: val})
	}
	return out
}

// StringValue wraps s as a String value.
func StringValue(s string) Value { return Value{Kind: String, Str: s} }

// MarshalJSON writes the value back out with object keys in document order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) write(buf *bytes.Buffer) error {
	switch v.Kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.Bool))
	case Number:
		if v.Num == "" {
			buf.WriteString("0")
		} else {
			buf.WriteString(v.Num.String())
		}
	case String:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Object:
		buf.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := m.Value.write(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case Array:
		buf.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.write(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("jsontree: cannot marshal %s", v.Kind)
	}
	return nil
}
