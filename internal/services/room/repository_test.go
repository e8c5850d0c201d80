package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseboard/caseboard/internal/dependencies/mocks"
	"github.com/caseboard/caseboard/internal/model"
	"github.com/caseboard/caseboard/internal/storage"
	"github.com/caseboard/caseboard/internal/storage/memory"
	"github.com/caseboard/caseboard/internal/testutil"
)

func newTestRepository(store storage.RoomStore) (*Repository, *mocks.MockClock, *mocks.MockRandom) {
	clk := mocks.NewMockClock(time.UnixMilli(1700000000000))
	rnd := mocks.NewMockRandom()
	repo := NewRepository(store, clk, rnd, 0, testutil.NopLogger())
	return repo, clk, rnd
}

func storedRoom(t *testing.T, store storage.RoomStore, code model.RoomCode, room *model.Room) {
	t.Helper()
	data, err := model.EncodeRoom(room)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), code, data))
}

func TestGetReadsThroughOnCacheMiss(t *testing.T) {
	store := memory.New()
	repo, clk, _ := newTestRepository(store)
	ctx := context.Background()

	room := model.NewRoom("AB12", clk.Now())
	storedRoom(t, store, "AB12", room)

	got, ok := repo.Get(ctx, "AB12")
	require.True(t, ok)
	assert.Equal(t, model.RoomCode("AB12"), got.Code)

	// Second read is served from the cache: deleting the store copy must
	// not make the room disappear
	require.NoError(t, store.Delete(ctx, "AB12"))
	_, ok = repo.Get(ctx, "AB12")
	assert.True(t, ok)
}

func TestGetMissingRoom(t *testing.T) {
	repo, _, _ := newTestRepository(memory.New())

	_, ok := repo.Get(context.Background(), "ZZ99")
	assert.False(t, ok)
}

func TestGetTreatsCorruptSnapshotAsAbsent(t *testing.T) {
	store := memory.New()
	repo, _, _ := newTestRepository(store)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "AB12", []byte(`not json`)))

	_, ok := repo.Get(ctx, "AB12")
	assert.False(t, ok)
}

func TestSaveIsVisibleToNextReadBeforePersisting(t *testing.T) {
	store := memory.New()
	repo, clk, _ := newTestRepository(store)
	ctx := context.Background()

	room := model.NewRoom("AB12", clk.Now())
	repo.Save(ctx, "AB12", room)

	got, ok := repo.Get(ctx, "AB12")
	require.True(t, ok)
	assert.Equal(t, room, got)
}

func TestGetReturnsIsolatedRoomCopies(t *testing.T) {
	store := memory.New()
	repo, clk, _ := newTestRepository(store)
	ctx := context.Background()

	room := model.NewRoom("AB12", clk.Now())
	room.Players = append(room.Players, model.Player{ConnectionID: "conn-1", DisplayName: "Ana"})
	repo.Save(ctx, "AB12", room)

	first, ok := repo.Get(ctx, "AB12")
	require.True(t, ok)
	first.Players[0].DisplayName = "Mallory"
	first.Players = first.Players[:0]

	// Mutating one snapshot never leaks into another
	second, ok := repo.Get(ctx, "AB12")
	require.True(t, ok)
	require.Len(t, second.Players, 1)
	assert.Equal(t, "Ana", second.Players[0].DisplayName)
}

func TestSaveDoesNotAliasCallerRoom(t *testing.T) {
	store := memory.New()
	repo, clk, _ := newTestRepository(store)
	ctx := context.Background()

	room := model.NewRoom("AB12", clk.Now())
	room.Players = append(room.Players, model.Player{ConnectionID: "conn-1", DisplayName: "Ana"})
	repo.Save(ctx, "AB12", room)

	room.Players[0].DisplayName = "Mallory"

	got, ok := repo.Get(ctx, "AB12")
	require.True(t, ok)
	assert.Equal(t, "Ana", got.Players[0].DisplayName)
}

func TestSaveWritesBehindToStore(t *testing.T) {
	store := memory.New()
	repo, clk, _ := newTestRepository(store)
	ctx := context.Background()

	room := model.NewRoom("AB12", clk.Now())
	room.Players = append(room.Players, model.Player{
		ConnectionID: "conn-1",
		Identity:     model.PlayerIdentity{ID: "u1", Source: model.IdentityClient},
		DisplayName:  "Ana",
		RoomCode:     "AB12",
	})
	repo.Save(ctx, "AB12", room)
	repo.Wait()

	data, err := store.Get(ctx, "AB12")
	require.NoError(t, err)

	persisted, err := model.DecodeRoom(data)
	require.NoError(t, err)
	assert.Equal(t, room, persisted)
}

type failingStore struct {
	memory.Storage
	putErr error
}

func (s *failingStore) Put(ctx context.Context, code model.RoomCode, data []byte) error {
	return s.putErr
}

func TestSaveReportsPersistFailures(t *testing.T) {
	putErr := errors.New("disk full")
	store := &failingStore{putErr: putErr}
	repo, clk, _ := newTestRepository(store)
	ctx := context.Background()

	var mu sync.Mutex
	var failedCode model.RoomCode
	var failedErr error
	repo.SetPersistFailureHook(func(code model.RoomCode, err error) {
		mu.Lock()
		defer mu.Unlock()
		failedCode = code
		failedErr = err
	})

	repo.Save(ctx, "AB12", model.NewRoom("AB12", clk.Now()))
	repo.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, model.RoomCode("AB12"), failedCode)
	assert.ErrorIs(t, failedErr, putErr)

	// The cache write already committed: the room is still readable
	_, ok := repo.Get(ctx, "AB12")
	assert.True(t, ok)
}

func TestDeleteRemovesCacheAndStore(t *testing.T) {
	store := memory.New()
	repo, clk, _ := newTestRepository(store)
	ctx := context.Background()

	repo.Save(ctx, "AB12", model.NewRoom("AB12", clk.Now()))
	repo.Wait()

	require.NoError(t, repo.Delete(ctx, "AB12"))

	_, ok := repo.Get(ctx, "AB12")
	assert.False(t, ok)
	_, err := store.Get(ctx, "AB12")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}

func TestGenerateUniqueCodeFresh(t *testing.T) {
	repo, _, rnd := newTestRepository(memory.New())
	rnd.QueueString("AB12")

	code, err := repo.GenerateUniqueCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RoomCode("AB12"), code)
}

func TestGenerateUniqueCodeRedrawsOnCollision(t *testing.T) {
	repo, clk, rnd := newTestRepository(memory.New())
	ctx := context.Background()

	occupied := model.NewRoom("AB12", clk.Now())
	occupied.Players = append(occupied.Players, model.Player{ConnectionID: "conn-1"})
	repo.Save(ctx, "AB12", occupied)

	rnd.QueueString("AB12", "CD34")

	code, err := repo.GenerateUniqueCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RoomCode("CD34"), code)
}

func TestGenerateUniqueCodeReusesOfflineRoom(t *testing.T) {
	repo, clk, rnd := newTestRepository(memory.New())
	ctx := context.Background()

	abandoned := model.NewRoom("AB12", clk.Now())
	abandoned.Players = append(abandoned.Players, model.Player{ConnectionID: "gone"})
	abandoned.Status = model.RoomStatusOffline
	abandoned.Timer = model.Timer{ElapsedMs: 99}
	repo.Save(ctx, "AB12", abandoned)

	rnd.QueueString("AB12")
	clk.Advance(time.Hour)

	code, err := repo.GenerateUniqueCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RoomCode("AB12"), code)

	room, ok := repo.Get(ctx, "AB12")
	require.True(t, ok)
	assert.Empty(t, room.Players)
	assert.Equal(t, model.RoomStatusOnline, room.Status)
	assert.Equal(t, model.Timer{}, room.Timer)
	assert.Equal(t, clk.Now(), room.LastUpdated)
}

func TestGenerateUniqueCodeReusesEmptyOnlineRoom(t *testing.T) {
	repo, clk, rnd := newTestRepository(memory.New())
	ctx := context.Background()

	// Online but empty: everyone left and the leave handler marked nothing
	repo.Save(ctx, "AB12", model.NewRoom("AB12", clk.Now()))
	rnd.QueueString("AB12")

	code, err := repo.GenerateUniqueCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RoomCode("AB12"), code)
}

func TestGenerateUniqueCodeExhaustion(t *testing.T) {
	repo, clk, rnd := newTestRepository(memory.New())
	ctx := context.Background()

	occupied := model.NewRoom("AB12", clk.Now())
	occupied.Players = append(occupied.Players, model.Player{ConnectionID: "conn-1"})
	repo.Save(ctx, "AB12", occupied)

	for i := 0; i < codeAttempts; i++ {
		rnd.QueueString("AB12")
	}

	_, err := repo.GenerateUniqueCode(ctx)
	assert.ErrorIs(t, err, model.ErrCodeSpaceExhausted)
}

func TestLoadFromStoreResetsMembership(t *testing.T) {
	store := memory.New()
	repo, clk, _ := newTestRepository(store)
	ctx := context.Background()

	room := model.NewRoom("AB12", clk.Now())
	room.Players = append(room.Players, model.Player{
		ConnectionID: "conn-1",
		Identity:     model.PlayerIdentity{ID: "u1", Source: model.IdentityClient},
		DisplayName:  "Ana",
		RoomCode:     "AB12",
	})
	room.Timer = model.Timer{ElapsedMs: 4200}
	storedRoom(t, store, "AB12", room)

	require.NoError(t, repo.LoadFromStore(ctx))

	loaded, ok := repo.Get(ctx, "AB12")
	require.True(t, ok)
	assert.Empty(t, loaded.Players)
	assert.Equal(t, model.RoomStatusOffline, loaded.Status)
	// Timer state is part of the room, not the membership, so it survives
	assert.Equal(t, int64(4200), loaded.Timer.ElapsedMs)
}

func TestLoadFromStoreSkipsCorruptSnapshots(t *testing.T) {
	store := memory.New()
	repo, clk, _ := newTestRepository(store)
	ctx := context.Background()

	storedRoom(t, store, "AB12", model.NewRoom("AB12", clk.Now()))
	require.NoError(t, store.Put(ctx, "XX00", []byte(`garbage`)))

	require.NoError(t, repo.LoadFromStore(ctx))

	_, ok := repo.Get(ctx, "AB12")
	assert.True(t, ok)
}
