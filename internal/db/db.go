package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"outpass-backend/config"
	"outpass-backend/internal/model"
)

const defaultSQLiteDSN = "file::memory:?cache=shared"

// Open connects to the configured database without migrating it.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite has a single writer; share one connection so transactions queue.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

// Init opens the database and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the schema. It is safe to run repeatedly.
func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.PassRequest{},
		&model.GateEvent{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	if err := applyIndexDDL(db); err != nil {
		return err
	}
	if db.Dialector.Name() == "postgres" {
		if err := applyPostgresDDL(db); err != nil {
			log.Printf("Warning: failed to apply Postgres constraints: %v. Continuing without them.", err)
		}
	}
	return nil
}

// applyIndexDDL adds the partial indexes both SQLite and Postgres support.
func applyIndexDDL(db *gorm.DB) error {
	ddls := []string{
		// Overdue sweep and "currently out" count.
		"CREATE INDEX IF NOT EXISTS idx_pass_requests_out ON pass_requests (window_to) " +
			"WHERE exit_at IS NOT NULL AND entry_at IS NULL",
		// Gate log, newest first.
		"CREATE INDEX IF NOT EXISTS idx_gate_events_occurred_at ON gate_events (occurred_at DESC, id DESC)",
	}
	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func applyPostgresDDL(db *gorm.DB) error {
	constraints := map[string]string{
		"pass_requests_window_valid":     "ALTER TABLE pass_requests ADD CONSTRAINT pass_requests_window_valid CHECK (window_from < window_to)",
		"pass_requests_entry_after_exit": "ALTER TABLE pass_requests ADD CONSTRAINT pass_requests_entry_after_exit CHECK (entry_at IS NULL OR exit_at IS NOT NULL)",
		"gate_events_direction_valid":    "ALTER TABLE gate_events ADD CONSTRAINT gate_events_direction_valid CHECK (direction IN ('exit', 'entry'))",
	}
	for name, ddl := range constraints {
		var n int64
		if err := db.Raw("SELECT COUNT(*) FROM pg_constraint WHERE conname = ?", name).Scan(&n).Error; err != nil {
			return fmt.Errorf("failed to look up constraint %s: %w", name, err)
		}
		if n > 0 {
			continue
		}
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
