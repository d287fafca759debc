package sandbox

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *CartStore {
	return NewCartStore(DefaultCatalog(), time.Hour)
}

func TestCartStoreCreate(t *testing.T) {
	s := newTestStore()

	cart := s.Create()
	assert.True(t, strings.HasPrefix(cart.ID, "cart_"))
	assert.Empty(t, cart.LineItems)
	assert.Equal(t, "USD", cart.Currency)
	assert.Equal(t, cart.Updated+3600, cart.Expires)

	got, err := s.Get(cart.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)
	assert.Equal(t, 1, s.Len())
}

func TestCartStoreAddMergesLines(t *testing.T) {
	s := newTestStore()
	cart := s.Create()

	first, err := s.Add(cart.ID, "prod_tube_feeder", 2, nil)
	require.NoError(t, err)
	require.NotNil(t, first.LineItem)
	assert.True(t, strings.HasPrefix(first.LineItem.ID, "item_"))
	assert.Equal(t, "49.00", first.LineItem.LineTotal.Formatted)

	second, err := s.Add(cart.ID, "tube-feeder", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, first.LineItem.ID, second.LineItem.ID)
	assert.Equal(t, 3, second.LineItem.Quantity)

	withOptions, err := s.Add(cart.ID, "prod_tube_feeder", 1, map[string]string{"color": "green"})
	require.NoError(t, err)
	assert.NotEqual(t, first.LineItem.ID, withOptions.LineItem.ID)

	assert.Equal(t, 4, withOptions.Cart.TotalItems)
	assert.Equal(t, 2, withOptions.Cart.TotalUnique)
	assert.Equal(t, "$98.00", withOptions.Cart.Subtotal.FormattedWithSymbol)
}

func TestCartStoreStock(t *testing.T) {
	s := newTestStore()
	cart := s.Create()

	_, err := s.Add(cart.ID, "prod_nectar_feeder", 4, nil)
	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Available)

	m, err := s.Add(cart.ID, "prod_nectar_feeder", 3, nil)
	require.NoError(t, err)

	_, err = s.Update(cart.ID, m.LineItem.ID, 5)
	assert.True(t, errors.As(err, &stockErr))

	// unmanaged inventory has no limit
	_, err = s.Add(cart.ID, "prod_suet_cage", 100, nil)
	assert.NoError(t, err)
}

func TestCartStoreUpdateRemoveEmpty(t *testing.T) {
	s := newTestStore()
	cart := s.Create()

	a, err := s.Add(cart.ID, "prod_wren_house", 1, nil)
	require.NoError(t, err)
	b, err := s.Add(cart.ID, "prod_seed_mix", 1, nil)
	require.NoError(t, err)

	updated, err := s.Update(cart.ID, a.LineItem.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.LineItem.Quantity)
	assert.Equal(t, 102.0, updated.LineItem.LineTotal.Raw)

	removed, err := s.Update(cart.ID, a.LineItem.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, a.LineItem.ID, removed.LineItem.ID)
	assert.Len(t, removed.Cart.LineItems, 1)

	_, err = s.Remove(cart.ID, a.LineItem.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.Remove(cart.ID, b.LineItem.ID)
	require.NoError(t, err)

	_, err = s.Add(cart.ID, "prod_seed_mix", 2, nil)
	require.NoError(t, err)
	emptied, err := s.Empty(cart.ID)
	require.NoError(t, err)
	assert.Nil(t, emptied.LineItem)
	assert.Empty(t, emptied.Cart.LineItems)
	assert.Equal(t, 0.0, emptied.Cart.Subtotal.Raw)
}

func TestCartStoreDelete(t *testing.T) {
	s := newTestStore()
	cart := s.Create()

	require.NoError(t, s.Delete(cart.ID))
	_, err := s.Get(cart.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Delete(cart.ID), ErrNotFound))
}

func TestCartStoreUnknownProduct(t *testing.T) {
	s := newTestStore()
	cart := s.Create()

	_, err := s.Add(cart.ID, "prod_nope", 1, nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCartStoreExpiry(t *testing.T) {
	s := newTestStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	cart := s.Create()
	now = now.Add(30 * time.Minute)
	_, err := s.Add(cart.ID, "prod_seed_mix", 1, nil)
	require.NoError(t, err)

	// the add pushed expiry out
	now = now.Add(45 * time.Minute)
	_, err = s.Get(cart.ID)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	assert.Equal(t, 0, s.Len())
	_, err = s.Get(cart.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCartStoreConcurrentAdds(t *testing.T) {
	s := newTestStore()
	cart := s.Create()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(cart.ID, "prod_seed_mix", 1, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(cart.ID)
	require.NoError(t, err)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, 20, got.LineItems[0].Quantity)
}
