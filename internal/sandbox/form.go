package sandbox

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mitchellh/mapstructure"
)

// bindForm decodes the request's form fields into dst. Bracketed keys such
// as "options[size]" become nested maps before decoding.
func bindForm(c *fiber.Ctx, dst any) error {
	values, err := formFields(c)
	if err != nil {
		return err
	}
	return bindValues(values, dst)
}

// bindQuery decodes the query string into dst.
func bindQuery(c *fiber.Ctx, dst any) error {
	values := make(map[string]any)
	var err error
	c.Request().URI().QueryArgs().VisitAll(func(k, v []byte) {
		if err == nil {
			err = setPath(values, splitKey(string(k)), string(v))
		}
	})
	if err != nil {
		return err
	}
	return bindValues(values, dst)
}

func bindValues(values map[string]any, dst any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(values); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

// formFields collects multipart and urlencoded fields into a nested map.
func formFields(c *fiber.Ctx) (map[string]any, error) {
	values := make(map[string]any)
	ct := strings.ToLower(string(c.Request().Header.ContentType()))

	switch {
	case strings.HasPrefix(ct, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "malformed multipart body")
		}
		for key, vals := range form.Value {
			for _, v := range vals {
				if err := setPath(values, splitKey(key), v); err != nil {
					return nil, err
				}
			}
		}
	case strings.HasPrefix(ct, fiber.MIMEApplicationForm):
		var err error
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			if err == nil {
				err = setPath(values, splitKey(string(k)), string(v))
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}

// splitKey turns "a[b][c]" into [a b c] and "tags[]" into [tags ""].
func splitKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}
	parts := []string{key[:open]}
	return append(parts, strings.Split(key[open+1:len(key)-1], "][")...)
}

func setPath(root map[string]any, path []string, value string) error {
	node := root
	for i, seg := range path {
		last := i == len(path)-1
		if last {
			if _, exists := node[seg]; exists {
				return fiber.NewError(fiber.StatusUnprocessableEntity,
					fmt.Sprintf("duplicate form field %q", strings.Join(path, ".")))
			}
			node[seg] = value
			return nil
		}

		// "key[]" appends to a list
		if path[i+1] == "" && i+1 == len(path)-1 {
			list, _ := node[seg].([]any)
			if _, exists := node[seg]; exists && list == nil {
				return conflict(path)
			}
			node[seg] = append(list, value)
			return nil
		}

		child, exists := node[seg]
		if !exists {
			m := make(map[string]any)
			node[seg] = m
			node = m
			continue
		}
		m, ok := child.(map[string]any)
		if !ok {
			return conflict(path)
		}
		node = m
	}
	return nil
}

func conflict(path []string) error {
	return fiber.NewError(fiber.StatusUnprocessableEntity,
		fmt.Sprintf("form field %q conflicts with another field", strings.Join(path, ".")))
}
