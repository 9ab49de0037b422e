package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var ErrSnapshotNotFound = errors.New("no persisted snapshot")

// Repository stores serialized snapshots of the shared document.
type Repository interface {
	Name() string
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, snapshot []byte) error
}

// FileRepository keeps the snapshot in a single JSON file.
type FileRepository struct {
	path string
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) Name() string { return "file" }

func (r *FileRepository) Load(ctx context.Context) ([]byte, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	return raw, nil
}

// Save writes through a temp file and rename so a crash mid-write leaves the
// previous snapshot intact.
func (r *FileRepository) Save(ctx context.Context, snapshot []byte) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(snapshot); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

// RedisRepository keeps the snapshot under one Redis key.
type RedisRepository struct {
	client *redis.Client
	key    string
}

func NewRedisRepository(client *redis.Client, key string) *RedisRepository {
	return &RedisRepository{client: client, key: key}
}

func (r *RedisRepository) Name() string { return "redis" }

func (r *RedisRepository) Load(ctx context.Context) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return raw, nil
}

func (r *RedisRepository) Save(ctx context.Context, snapshot []byte) error {
	return r.client.Set(ctx, r.key, snapshot, 0).Err()
}

// GormRepository appends every snapshot to a history table and loads the
// newest row.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Name() string { return "postgres" }

func (r *GormRepository) Load(ctx context.Context) ([]byte, error) {
	var snap StateSnapshot
	err := r.db.WithContext(ctx).Order("id DESC").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(snap.Payload), nil
}

func (r *GormRepository) Save(ctx context.Context, snapshot []byte) error {
	var meta struct {
		UserName    string `json:"userName"`
		LastUpdated int64  `json:"lastUpdated"`
	}
	// metadata only; the payload is stored as-is
	_ = json.Unmarshal(snapshot, &meta)

	return r.db.WithContext(ctx).Create(&StateSnapshot{
		Payload:     string(snapshot),
		UserName:    meta.UserName,
		LastUpdated: meta.LastUpdated,
	}).Error
}

// History lists stored snapshots, newest first.
func (r *GormRepository) History(ctx context.Context, page, pageSize int) (*PaginatedSnapshots, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&StateSnapshot{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []StateSnapshot
	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Select("id", "user_name", "last_updated", "created_at").
		Order("id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	data := make([]SnapshotSummary, 0, len(rows))
	for _, row := range rows {
		data = append(data, SnapshotSummary{
			ID:          row.ID,
			UserName:    row.UserName,
			LastUpdated: row.LastUpdated,
			CreatedAt:   row.CreatedAt,
		})
	}

	return &PaginatedSnapshots{
		Data: data,
		Meta: SnapshotsMeta{
			Total:       total,
			CurrentPage: page,
			PerPage:     pageSize,
			TotalPage:   int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}, nil
}
