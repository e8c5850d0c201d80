package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/caseboard/caseboard/internal/dependencies/clock"
	"github.com/caseboard/caseboard/internal/dependencies/random"
	"github.com/caseboard/caseboard/internal/model"
	"github.com/caseboard/caseboard/internal/storage"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 4
	// CodeAlphabet is the characters used in room codes
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// codeAttempts bounds code generation before giving up
	codeAttempts = 10

	// DefaultCacheTTL is how long a room stays cached after its last write
	DefaultCacheTTL = 24 * time.Hour
)

// PersistFailureHook observes asynchronous store-write failures. Saves are
// at-most-once best-effort; the hook exists so tests and operators can see
// what was lost.
type PersistFailureHook func(code model.RoomCode, err error)

// Repository is the single access point for room state. The in-memory cache
// is authoritative for the running process; the durable store is a
// write-behind mirror consulted only on cache miss and at startup.
type Repository struct {
	store  storage.RoomStore
	cache  *gocache.Cache
	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	mu            sync.Mutex
	persistFailed PersistFailureHook

	// pending tracks in-flight store writes so shutdown and tests can drain
	pending sync.WaitGroup
}

// NewRepository creates a repository over the given durable store. cacheTTL
// of zero falls back to DefaultCacheTTL.
func NewRepository(
	store storage.RoomStore,
	clk clock.Clock,
	rnd random.Random,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Repository {
	if cacheTTL == 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Repository{
		store:  store,
		cache:  gocache.New(cacheTTL, time.Hour),
		clock:  clk,
		random: rnd,
		logger: logger.With(slog.String("component", "room-repository")),
	}
}

// SetPersistFailureHook installs the durability failure observer
func (r *Repository) SetPersistFailureHook(hook PersistFailureHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistFailed = hook
}

// Get returns the room for a code, reading through to the durable store on
// cache miss. The result is a deep copy: callers on any goroutine may read
// and mutate it freely, and changes become visible only through Save.
// Storage and deserialization failures are logged and reported as absent;
// they never propagate.
func (r *Repository) Get(ctx context.Context, code model.RoomCode) (*model.Room, bool) {
	if cached, ok := r.cache.Get(string(code)); ok {
		return cached.(*model.Room).Clone(), true
	}

	data, err := r.store.Get(ctx, code)
	if err != nil {
		if !errors.Is(err, model.ErrRoomNotFound) {
			r.logger.Error("store read failed",
				slog.String("room", string(code)),
				slog.Any("error", err))
		}
		return nil, false
	}

	room, err := model.DecodeRoom(data)
	if err != nil {
		r.logger.Error("stored room is unreadable, treating as absent",
			slog.String("room", string(code)),
			slog.Any("error", err))
		return nil, false
	}

	r.cache.SetDefault(string(code), room)
	return room.Clone(), true
}

// Save writes the room to the cache synchronously (the commit point: visible
// to the very next read) and upserts it into the durable store
// asynchronously. The cache keeps a private copy, so the caller's room and
// every Get result stay isolated from each other. Store failures are logged,
// handed to the persist-failure hook, and never retried.
func (r *Repository) Save(ctx context.Context, code model.RoomCode, room *model.Room) {
	r.cache.SetDefault(string(code), room.Clone())

	data, err := model.EncodeRoom(room)
	if err != nil {
		r.reportPersistFailure(code, err)
		return
	}

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		// Deliberately detached from the handler's context: the handler
		// does not await durability
		if err := r.store.Put(context.Background(), code, data); err != nil {
			r.reportPersistFailure(code, err)
		}
	}()
}

// Delete removes the room from both the cache and the durable store
func (r *Repository) Delete(ctx context.Context, code model.RoomCode) error {
	r.cache.Delete(string(code))
	return r.store.Delete(ctx, code)
}

// GenerateUniqueCode draws random 4-character codes until it finds one that
// is free or occupied by an abandoned room, which it resets and reuses.
// Codes held by online rooms with players are rejected. Fails with
// model.ErrCodeSpaceExhausted after a bounded number of attempts.
func (r *Repository) GenerateUniqueCode(ctx context.Context) (model.RoomCode, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := model.RoomCode(r.random.String(CodeLength, CodeAlphabet))

		existing, ok := r.Get(ctx, code)
		if !ok {
			return code, nil
		}

		if existing.Status == model.RoomStatusOffline || len(existing.Players) == 0 {
			r.logger.Info("reusing abandoned room", slog.String("room", string(code)))
			existing.ResetForReuse(r.clock.Now())
			r.Save(ctx, code, existing)
			return code, nil
		}

		r.logger.Debug("room code collision, redrawing", slog.String("room", string(code)))
	}

	return "", model.ErrCodeSpaceExhausted
}

// LoadFromStore warms the cache from the durable store at startup. Every
// loaded room has its players cleared and its status forced OFFLINE:
// connection identities cannot survive a restart, so any membership on disk
// is stale by definition.
func (r *Repository) LoadFromStore(ctx context.Context) error {
	records, err := r.store.All(ctx)
	if err != nil {
		return err
	}

	loaded := 0
	for _, record := range records {
		room, err := model.DecodeRoom(record.Data)
		if err != nil {
			r.logger.Error("skipping unreadable room snapshot",
				slog.String("room", string(record.Code)),
				slog.Any("error", err))
			continue
		}
		room.Players = []model.Player{}
		room.Status = model.RoomStatusOffline
		r.cache.SetDefault(string(record.Code), room)
		loaded++
	}

	r.logger.Info("rooms loaded from store", slog.Int("count", loaded))
	return nil
}

// Wait blocks until all in-flight store writes have completed. Used at
// shutdown and by tests asserting on durability.
func (r *Repository) Wait() {
	r.pending.Wait()
}

func (r *Repository) reportPersistFailure(code model.RoomCode, err error) {
	r.logger.Error("failed to persist room",
		slog.String("room", string(code)),
		slog.Any("error", err))

	r.mu.Lock()
	hook := r.persistFailed
	r.mu.Unlock()
	if hook != nil {
		hook(code, err)
	}
}
