//go:build integration

package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/birbparty/birb-commerce/events"
	"github.com/birbparty/birb-commerce/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	containers := &testutil.Containers{}
	t.Cleanup(func() { _ = containers.Cleanup(context.Background()) })
	require.NoError(t, containers.StartPostgres(ctx))

	db, err := NewDB(ctx, &Config{
		Host:     containers.Postgres.Host,
		Port:     containers.Postgres.Port,
		User:     testutil.PostgresUser,
		Password: testutil.PostgresPassword,
		Database: testutil.PostgresDB,
		SSLMode:  "disable",
		MaxConns: 4,
		MinConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	store := NewStore(db)
	require.NoError(t, store.EnsureSchema(ctx))
	// running it twice must be harmless
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestStoreAppendAndQuery(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	var records []Record
	for i, name := range []string{"Cart.Item.Added", "Cart.Item.Added", "Cart.Emptied"} {
		n := events.NewNotification(name)
		n.Timestamp = time.Now().UTC().Add(time.Duration(i) * time.Second)
		payload, err := n.Marshal()
		require.NoError(t, err)
		records = append(records, RecordFromNotification(n, "commerce.events."+name, payload))
	}

	inserted, err := store.Append(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// redelivery is skipped
	inserted, err = store.Append(ctx, records[:2])
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	recent, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "Cart.Emptied", recent[0].Event)
	assert.JSONEq(t, string(records[2].Payload), string(recent[0].Payload))

	added, err := store.Recent(ctx, "Cart.Item.Added", 10)
	require.NoError(t, err)
	assert.Len(t, added, 2)

	counts, err := store.CountByEvent(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Cart.Item.Added": 2, "Cart.Emptied": 1}, counts)

	purged, err := store.Purge(ctx, records[2].OccurredAt.Add(-500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 2, purged)
}
