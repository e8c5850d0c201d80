package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/caseboard/caseboard/internal/model"
	"github.com/caseboard/caseboard/internal/storage"
)

// roomRow mirrors the on-disk schema: one row per room keyed by its code,
// holding the serialized snapshot as an opaque blob
type roomRow struct {
	Code        string `gorm:"primaryKey;column:code"`
	Data        []byte `gorm:"column:data"`
	LastUpdated int64  `gorm:"column:last_updated"`
}

// TableName pins the gorm table name
func (roomRow) TableName() string {
	return "rooms"
}

// Storage is a SQLite-backed implementation of the room store
type Storage struct {
	db *gorm.DB
}

// New opens (or creates) the database at the given path and migrates the
// rooms table
func New(path string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&roomRow{}); err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying database handle
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ storage.RoomStore = (*Storage)(nil)

func (s *Storage) Put(ctx context.Context, code model.RoomCode, data []byte) error {
	row := roomRow{
		Code:        string(code),
		Data:        data,
		LastUpdated: time.Now().UnixMilli(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

func (s *Storage) Get(ctx context.Context, code model.RoomCode) ([]byte, error) {
	var row roomRow
	err := s.db.WithContext(ctx).First(&row, "code = ?", string(code)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	return row.Data, nil
}

func (s *Storage) Delete(ctx context.Context, code model.RoomCode) error {
	return s.db.WithContext(ctx).Delete(&roomRow{}, "code = ?", string(code)).Error
}

func (s *Storage) All(ctx context.Context) ([]storage.Record, error) {
	var rows []roomRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]storage.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, storage.Record{
			Code: model.RoomCode(row.Code),
			Data: row.Data,
		})
	}
	return records, nil
}
