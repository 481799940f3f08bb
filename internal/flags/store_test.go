package flags

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	store, err := NewStore(client, nil)
	require.NoError(t, err)
	return store
}

func TestNewStore_NilClient(t *testing.T) {
	_, err := NewStore(nil, nil)
	assert.Error(t, err)
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"swap.simple_mode", "flag-1", "a"} {
		assert.NoError(t, ValidateKey(key), key)
	}
	for _, key := range []string{"", " ", "flag with spaces", "flag:colon", "tab\tkey"} {
		assert.Error(t, ValidateKey(key), key)
	}
}

func TestStore_UpsertGetDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, constants.FlagSimpleMode)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := store.Upsert(ctx, constants.FlagSimpleMode, true)
	require.NoError(t, err)
	got, err := store.Get(ctx, constants.FlagSimpleMode)
	require.NoError(t, err)
	assert.True(t, got.Value)
	assert.Equal(t, first.UpdatedAt, got.UpdatedAt)

	time.Sleep(time.Millisecond)
	second, err := store.Upsert(ctx, constants.FlagSimpleMode, false)
	require.NoError(t, err)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	require.NoError(t, store.Delete(ctx, constants.FlagSimpleMode))
	_, err = store.Get(ctx, constants.FlagSimpleMode)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, constants.FlagSimpleMode))
}

func TestStore_Enabled(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assert.True(t, store.Enabled(ctx, constants.FlagSponsorGas, true))
	assert.False(t, store.Enabled(ctx, constants.FlagSponsorGas, false))

	_, err := store.Upsert(ctx, constants.FlagSponsorGas, true)
	require.NoError(t, err)
	assert.True(t, store.Enabled(ctx, constants.FlagSponsorGas, false))

	// invalid keys fall back to the default
	assert.True(t, store.Enabled(ctx, "bad key", true))
}

func TestStore_SeedDefaultsKeepsExisting(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, constants.FlagSimpleMode, true)
	require.NoError(t, err)

	require.NoError(t, store.SeedDefaults(ctx, Defaults))

	flags, err := store.List(ctx)
	require.NoError(t, err)
	values := map[string]bool{}
	for _, f := range flags {
		values[f.Key] = f.Value
	}
	assert.Equal(t, map[string]bool{
		constants.FlagSimpleMode: true,
		constants.FlagSponsorGas: false,
	}, values)
}

func TestStore_ListEmpty(t *testing.T) {
	store := setupTestStore(t)

	flags, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				key := fmt.Sprintf("flag.%d.%d", id, j)
				_, err := store.Upsert(ctx, key, (id+j)%2 == 0)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	flags, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, flags, workers*perWorker)
}
