package sdk

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// shape is the structural classification the encoder and the normalizer
// switch on.
type shape int

const (
	shapeScalar shape = iota
	shapeObject
	shapeArray
)

// File is a binary form part. It is a scalar for the encoder and is written
// as a file part in multipart bodies.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// Pair is one flattened field of a Payload.
type Pair struct {
	Key   string
	Value any
}

// Payload is the flat, ordered transport form of a nested request body.
// No Pair value is itself composite.
type Payload struct {
	pairs []Pair
}

// Add appends a field.
func (p *Payload) Add(key string, value any) {
	p.pairs = append(p.pairs, Pair{Key: key, Value: value})
}

// Pairs returns the fields in encoding order.
func (p *Payload) Pairs() []Pair {
	return append([]Pair(nil), p.pairs...)
}

// Len returns the number of fields.
func (p *Payload) Len() int {
	return len(p.pairs)
}

// Get returns the first value stored under key.
func (p *Payload) Get(key string) (any, bool) {
	for _, pair := range p.pairs {
		if pair.Key == key {
			return pair.Value, true
		}
	}
	return nil, false
}

// Map returns the fields keyed by composite key.
func (p *Payload) Map() map[string]any {
	m := make(map[string]any, len(p.pairs))
	for _, pair := range p.pairs {
		m[pair.Key] = pair.Value
	}
	return m
}

// WriteMultipart writes every field as a form part. Binary values become
// file parts named after their key.
func (p *Payload) WriteMultipart(w *multipart.Writer) error {
	for _, pair := range p.pairs {
		if err := writePart(w, pair.Key, pair.Value); err != nil {
			return fmt.Errorf("field %q: %w", pair.Key, err)
		}
	}
	return nil
}

func writePart(w *multipart.Writer, key string, value any) error {
	switch v := value.(type) {
	case *File:
		return writeFilePart(w, key, v.Name, v.ContentType, v.Reader)
	case File:
		return writeFilePart(w, key, v.Name, v.ContentType, v.Reader)
	case []byte:
		part, err := w.CreateFormFile(key, key)
		if err != nil {
			return err
		}
		_, err = part.Write(v)
		return err
	case io.Reader:
		return writeFilePart(w, key, key, "", v)
	}
	s, err := formatScalar(value)
	if err != nil {
		return err
	}
	return w.WriteField(key, s)
}

func writeFilePart(w *multipart.Writer, key, name, contentType string, r io.Reader) error {
	if name == "" {
		name = key
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, key, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	_, err = io.Copy(part, r)
	return err
}

// formatScalar renders a scalar the way a form field carries it.
func formatScalar(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(v).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(v).Uint(), 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("unsupported form value of type %T", value)
}

// Encode flattens a nested structure into a Payload using bracket-suffix
// keys: {"a": {"b": 1, "c": {"d": 2}}} becomes a[b]=1, a[c][d]=2. Arrays
// flatten the same way with their index as key.
//
// Scalars (strings, numbers, booleans, nil, []byte, io.Reader, File) are
// returned unchanged, meaning no encoding is needed. Composite input always
// comes back as a *Payload, empty when the input is empty.
//
// Fields of an *Object are visited in insertion order, slices by index, and
// structs in field order and plain maps by sorted key so the output is
// deterministic.
func Encode(input any) (any, error) {
	if shapeOf(input) == shapeScalar {
		return input, nil
	}
	acc := &Payload{}
	if err := encodeInto(acc, "", false, input); err != nil {
		return nil, err
	}
	return acc, nil
}

func encodeInto(acc *Payload, namespace string, nested bool, input any) error {
	fields, err := entriesOf(input)
	if err != nil {
		return err
	}
	for _, f := range fields {
		dataKey := f.key
		if nested {
			dataKey = namespace + "[" + f.key + "]"
		}
		if shapeOf(f.value) != shapeScalar {
			if err := encodeInto(acc, dataKey, true, f.value); err != nil {
				return err
			}
			continue
		}
		acc.Add(dataKey, f.value)
	}
	return nil
}

type entry struct {
	key   string
	value any
}

// shapeOf classifies a value without looking inside it.
func shapeOf(v any) shape {
	switch t := v.(type) {
	case nil, string, bool, json.Number, time.Time, []byte, json.RawMessage,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, File, *File, io.Reader:
		return shapeScalar
	case *Object:
		if t == nil {
			return shapeScalar
		}
		return shapeObject
	case map[string]any, map[string]string:
		return shapeObject
	case []any, []string, []map[string]any:
		return shapeArray
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return shapeScalar
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return shapeObject
		}
	case reflect.Struct:
		if _, ok := rv.Interface().(time.Time); ok {
			return shapeScalar
		}
		if _, ok := v.(fmt.Stringer); ok {
			return shapeScalar
		}
		return shapeObject
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return shapeScalar
		}
		return shapeArray
	}
	return shapeScalar
}

// entriesOf lists the direct children of a composite value.
func entriesOf(v any) ([]entry, error) {
	switch t := v.(type) {
	case *Object:
		out := make([]entry, 0, t.Len())
		for _, k := range t.keys {
			out = append(out, entry{key: k, value: t.values[k]})
		}
		return out, nil
	case map[string]any:
		out := make([]entry, 0, len(t))
		for _, k := range sortedKeys(t) {
			out = append(out, entry{key: k, value: t[k]})
		}
		return out, nil
	case []any:
		out := make([]entry, 0, len(t))
		for i, item := range t {
			out = append(out, entry{key: strconv.Itoa(i), value: item})
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		out := make([]entry, 0, len(keys))
		for _, k := range keys {
			out = append(out, entry{key: k.String(), value: rv.MapIndex(k).Interface()})
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		out := make([]entry, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, entry{key: strconv.Itoa(i), value: rv.Index(i).Interface()})
		}
		return out, nil
	case reflect.Struct:
		obj, err := structToObject(v)
		if err != nil {
			return nil, err
		}
		return entriesOf(obj)
	}
	return nil, fmt.Errorf("sdk: cannot enumerate value of type %T", v)
}

// structToObject converts a struct to an Object through its JSON form, so
// json tags, omitempty and custom marshalers apply and field order is kept.
func structToObject(v any) (*Object, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("sdk: encode %T: %w", v, err)
	}
	obj := NewObject()
	if err := obj.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("sdk: encode %T: %w", v, err)
	}
	return obj, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
