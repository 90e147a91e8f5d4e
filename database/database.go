package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mqtt-panel/config"
	"mqtt-panel/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// gormLogger adapts slog to be used as a GORM logger.
type gormLogger struct {
	slogger *slog.Logger
	level   logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{slogger: l.slogger, level: level}
}
func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.slogger.InfoContext(ctx, msg, "gorm_data", data)
	}
}
func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.slogger.WarnContext(ctx, msg, "gorm_data", data)
	}
}
func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.slogger.ErrorContext(ctx, msg, "gorm_data", data)
	}
}
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level == logger.Silent {
		return
	}
	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("latency", time.Since(begin).String()),
		slog.String("sql", sql),
		slog.Int64("rows_affected", rows),
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		attrs = append(attrs, slog.Any("error", err))
		l.slogger.LogAttrs(ctx, slog.LevelError, "GORM Trace", attrs...)
	} else {
		l.slogger.LogAttrs(ctx, slog.LevelDebug, "GORM Trace", attrs...)
	}
}

// KVRecord is one stored document.
type KVRecord struct {
	RecordKey string `gorm:"column:record_key;primaryKey;size:128"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time
}

func (KVRecord) TableName() string { return "kv_records" }

// Database is a storage.Store over a Postgres table.
type Database struct {
	DB     *gorm.DB
	logger *slog.Logger
}

// NewDatabase connects to Postgres and migrates the document table.
func NewDatabase(cfg *config.Config, appLogger *slog.Logger) (*Database, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)

	dbLogger := appLogger.With("component", "database")
	dbLogger.Info("Connecting to database...", "host", cfg.DBHost, "port", cfg.DBPort, "user", cfg.DBUser)

	gormConfig := &gorm.Config{
		Logger: (&gormLogger{slogger: dbLogger}).LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	dbLogger.Info("Database connected successfully")

	return NewWithDB(db, dbLogger)
}

// NewWithDB uses an already opened connection.
func NewWithDB(db *gorm.DB, dbLogger *slog.Logger) (*Database, error) {
	if err := db.AutoMigrate(&KVRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Database{DB: db, logger: dbLogger}, nil
}

func (d *Database) Load(ctx context.Context, key string) ([]byte, error) {
	var rec KVRecord
	err := d.DB.WithContext(ctx).Where("record_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return []byte(rec.Value), nil
}

// Save upserts the document under key.
func (d *Database) Save(ctx context.Context, key string, value []byte) error {
	rec := KVRecord{RecordKey: key, Value: string(value), UpdatedAt: time.Now()}
	err := d.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ storage.Store = (*Database)(nil)
