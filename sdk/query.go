package sdk

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// buildQuery renders GET data as query parameters without running it
// through the payload encoder. Scalars are written as-is, lists repeat the
// key with a "[]" suffix and nested objects are sent as JSON.
func buildQuery(data any) (url.Values, error) {
	values := url.Values{}
	switch v := data.(type) {
	case nil:
		return values, nil
	case url.Values:
		for k, vs := range v {
			values[k] = append([]string(nil), vs...)
		}
		return values, nil
	case string:
		parsed, err := url.ParseQuery(v)
		if err != nil {
			return nil, fmt.Errorf("invalid query string: %w", err)
		}
		return parsed, nil
	case map[string]string:
		for k, s := range v {
			values.Set(k, s)
		}
		return values, nil
	}

	if shapeOf(data) != shapeObject {
		return nil, fmt.Errorf("query parameters must be an object, got %T", data)
	}
	fields, err := entriesOf(data)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if err := addQueryValue(values, f.key, f.value); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func addQueryValue(values url.Values, key string, value any) error {
	if value == nil {
		return nil
	}
	switch shapeOf(value) {
	case shapeArray:
		items, err := entriesOf(value)
		if err != nil {
			return err
		}
		for _, item := range items {
			if shapeOf(item.value) != shapeScalar {
				raw, err := json.Marshal(item.value)
				if err != nil {
					return fmt.Errorf("query %q: %w", key, err)
				}
				values.Add(key+"[]", string(raw))
				continue
			}
			s, err := queryScalar(item.value)
			if err != nil {
				return fmt.Errorf("query %q: %w", key, err)
			}
			values.Add(key+"[]", s)
		}
		return nil
	case shapeObject:
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("query %q: %w", key, err)
		}
		values.Set(key, string(raw))
		return nil
	}
	s, err := queryScalar(value)
	if err != nil {
		return fmt.Errorf("query %q: %w", key, err)
	}
	values.Set(key, s)
	return nil
}

func queryScalar(value any) (string, error) {
	switch v := value.(type) {
	case []byte:
		return string(v), nil
	case json.RawMessage:
		return string(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return formatScalar(value)
}
