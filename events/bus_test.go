package events

import (
	"sync"
	"sync/atomic"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishMatchesPatterns(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	got := map[string][]string{}
	record := func(key string) Handler {
		return func(n *Notification) {
			mu.Lock()
			defer mu.Unlock()
			got[key] = append(got[key], n.Event)
		}
	}

	bus.Subscribe("*", record("all"))
	bus.Subscribe("commerce.Cart.>", record("cart"))
	bus.Subscribe("commerce.Cart.Emptied", record("emptied"))

	bus.Emit("Cart.Item.Added")
	bus.Emit("Cart.Emptied")
	bus.Emit("Checkout.Captured")
	bus.Wait()

	assert.ElementsMatch(t, []string{"Cart.Item.Added", "Cart.Emptied", "Checkout.Captured"}, got["all"])
	assert.ElementsMatch(t, []string{"Cart.Item.Added", "Cart.Emptied"}, got["cart"])
	assert.Equal(t, []string{"Cart.Emptied"}, got["emptied"])
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	var calls atomic.Int32
	sub := bus.Subscribe("*", func(*Notification) { calls.Add(1) })
	assert.Equal(t, 1, bus.Len())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, bus.Len())

	bus.Emit("Cart.Created")
	bus.Wait()
	assert.Zero(t, calls.Load())
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	bus := NewBus(logger)

	var calls atomic.Int32
	bus.Subscribe("*", func(*Notification) { panic("subscriber failed") })
	bus.Subscribe("*", func(*Notification) { calls.Add(1) })

	assert.NotPanics(t, func() {
		bus.Emit("Cart.Created")
		bus.Wait()
	})
	assert.Equal(t, int32(1), calls.Load())

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "Event handler panicked", hook.LastEntry().Message)
	assert.Equal(t, "commerce.Cart.Created", hook.LastEntry().Data["event"])
}

func TestBus_PublishDoesNotBlockOnSlowHandlers(t *testing.T) {
	bus := NewBus(nil)

	release := make(chan struct{})
	bus.Subscribe("*", func(*Notification) { <-release })

	done := make(chan struct{})
	go func() {
		bus.Emit("Cart.Created")
		close(done)
	}()
	<-done

	close(release)
	bus.Wait()
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
