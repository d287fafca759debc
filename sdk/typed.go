package sdk

import (
	"context"
)

// RequestAs calls Client.Request and decodes the normalized body into T.
// It uses Go generics so callers get their domain type back without an
// intermediate Result.
//
// Example:
//
//	page, err := sdk.RequestAs[sdk.Page[sdk.Product]](ctx, client, "products", "GET", nil)
//	if err != nil {
//	    return err
//	}
//	for _, p := range page.Data {
//	    fmt.Println(p.Name, p.Price.FormattedWithSymbol)
//	}
func RequestAs[T any](ctx context.Context, c *Client, endpoint, method string, data any) (T, error) {
	var zero T
	result, err := c.Request(ctx, endpoint, method, data)
	if err != nil {
		return zero, err
	}
	var out T
	if err := result.Decode(&out); err != nil {
		return zero, err
	}
	return out, nil
}

// DecodeAs decodes an existing result into T.
//
// Example:
//
//	result, err := client.Cart.Retrieve(ctx)
//	cart, err := sdk.DecodeAs[sdk.CartData](result)
func DecodeAs[T any](result *Result) (T, error) {
	var out T
	err := result.Decode(&out)
	return out, err
}
