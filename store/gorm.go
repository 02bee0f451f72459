package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/aclio/aclio/models"
)

// GormStore keeps records in a single kv_entries table.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating when needed) an on-device sqlite database.
func OpenSQLite(path string, o Options) (*GormStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := path + "?_pragma=busy_timeout(5000)"
	return openGorm(sqlite.Open(dsn), o, false)
}

// OpenMySQL connects to MySQL with a go-sql-driver DSN.
func OpenMySQL(dsn string, o Options) (*GormStore, error) {
	if !strings.Contains(dsn, "parseTime=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "charset=utf8mb4&parseTime=True&loc=Local"
	}
	return openGorm(mysql.Open(dsn), o, true)
}

// NewGormStore wraps an existing connection and migrates the kv table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if !db.Migrator().HasTable(&models.KVEntry{}) {
		if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
			return nil, fmt.Errorf("auto migration failed for kv_entries: %w", err)
		}
	}
	return &GormStore{db: db}, nil
}

func openGorm(dialector gorm.Dialector, o Options, pooled bool) (*GormStore, error) {
	gLogger := logger.New(
		log.New(os.Stderr, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(o.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gLogger})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if pooled {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	} else {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY between our own goroutines
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return NewGormStore(db)
}

// toGormLogLevel maps the application log level to gorm's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).Where("`key` = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now()
	entry := models.KVEntry{Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value, "updated_at": now}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("`key` = ?", key).Delete(&models.KVEntry{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
