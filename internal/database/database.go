package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/housecup/backend/internal/config"
	"github.com/emilythestrangee/housecup/backend/internal/models"
)

// Partial indexes are not expressible through gorm tags on both dialects, so
// they are created after AutoMigrate.
var indexes = []string{
	// one live candidacy per user and position; a rejected nominee may resubmit
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_nominations_active_user_position
		ON nominations (user_id, position_id) WHERE status <> 'rejected'`,
	`CREATE INDEX IF NOT EXISTS idx_registrations_event_attended
		ON registrations (event_id) WHERE attended`,
}

type Database struct {
	DB     *gorm.DB
	driver string
}

// New opens the configured database and configures the connection pool
func New(cfg config.DatabaseConfig, log *logrus.Logger) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLiteDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLogger := logger.Discard
	if log != nil {
		gormLogger = logger.New(log, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting database instance: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite has a single writer; one connection keeps transactions from
		// tripping over each other's locks.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if log != nil {
		log.WithField("driver", cfg.Driver).Info("✅ Database connected successfully")
	}

	return &Database{DB: db, driver: cfg.Driver}, nil
}

// Migrate creates or updates the tables and uniqueness guards
func (d *Database) Migrate() error {
	err := d.DB.AutoMigrate(
		&models.Position{},
		&models.Nomination{},
		&models.Vote{},
		&models.Registration{},
	)
	if err != nil {
		return fmt.Errorf("error migrating tables: %w", err)
	}

	for _, stmt := range indexes {
		if err := d.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("error creating index: %w", err)
		}
	}

	return nil
}

func (d *Database) Driver() string {
	return d.driver
}

func (d *Database) SQL() (*sql.DB, error) {
	return d.DB.DB()
}

// Health checks the health of the database connection by pinging the database.
func (d *Database) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := make(map[string]string)

	sqlDB, err := d.DB.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["driver"] = d.driver

	dbStats := sqlDB.Stats()
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)

	return stats
}

// Close closes the database connection.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
