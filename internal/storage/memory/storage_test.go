package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseboard/caseboard/internal/model"
)

func TestPutAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "AB12", []byte(`{"code":"AB12"}`)))

	data, err := store.Get(ctx, "AB12")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"code":"AB12"}`), data)
}

func TestPutIsUpsert(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "AB12", []byte(`v1`)))
	require.NoError(t, store.Put(ctx, "AB12", []byte(`v2`)))

	data, err := store.Get(ctx, "AB12")
	require.NoError(t, err)
	assert.Equal(t, []byte(`v2`), data)
}

func TestGetNotFound(t *testing.T) {
	store := New()

	_, err := store.Get(context.Background(), "ZZ99")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}

func TestDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "AB12", []byte(`v1`)))
	require.NoError(t, store.Delete(ctx, "AB12"))

	_, err := store.Get(ctx, "AB12")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)

	// Deleting an absent code is not an error
	assert.NoError(t, store.Delete(ctx, "AB12"))
}

func TestAll(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "AB12", []byte(`a`)))
	require.NoError(t, store.Put(ctx, "CD34", []byte(`b`)))

	records, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byCode := map[model.RoomCode][]byte{}
	for _, record := range records {
		byCode[record.Code] = record.Data
	}
	assert.Equal(t, []byte(`a`), byCode["AB12"])
	assert.Equal(t, []byte(`b`), byCode["CD34"])
}

func TestGetReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "AB12", []byte(`abc`)))

	data, err := store.Get(ctx, "AB12")
	require.NoError(t, err)
	data[0] = 'x'

	again, err := store.Get(ctx, "AB12")
	require.NoError(t, err)
	assert.Equal(t, []byte(`abc`), again)
}
