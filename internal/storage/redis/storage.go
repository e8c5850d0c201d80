package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caseboard/caseboard/internal/model"
	"github.com/caseboard/caseboard/internal/storage"
)

// Storage is a Redis-backed implementation of the room store
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

var _ storage.RoomStore = (*Storage)(nil)

func (s *Storage) Put(ctx context.Context, code model.RoomCode, data []byte) error {
	return s.client.Set(ctx, roomKey(code), data, s.cfg.RoomTTL).Err()
}

func (s *Storage) Get(ctx context.Context, code model.RoomCode) ([]byte, error) {
	data, err := s.client.Get(ctx, roomKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Storage) Delete(ctx context.Context, code model.RoomCode) error {
	return s.client.Del(ctx, roomKey(code)).Err()
}

func (s *Storage) All(ctx context.Context) ([]storage.Record, error) {
	var records []storage.Record

	iter := s.client.Scan(ctx, 0, roomKeyPattern(), 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between scan and get
			}
			return nil, err
		}
		records = append(records, storage.Record{Code: codeFromKey(key), Data: data})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
