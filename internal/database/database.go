package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/huddle/internal/config"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection opened by Initialize
var DB *gorm.DB

// Initialize opens the configured database and stores it in DB
func Initialize(cfg *config.Config) error {
	db, err := Open(cfg.DBDriver, cfg.DatabaseURL, cfg.Environment == "development")
	if err != nil {
		return err
	}
	DB = db
	logger.Log.Info("Database connected",
		zap.String("driver", cfg.DBDriver),
	)
	return nil
}

// Open connects to postgres or sqlite and configures the pool
func Open(driver, dsn string, verbose bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if verbose {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if driver == "sqlite" {
		// sqlite serializes writers; one connection avoids "database is locked"
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// OpenMemory opens a private in-memory sqlite database with the schema applied.
// Used by tests and `huddle-seed --memory`.
func OpenMemory(name string) (*gorm.DB, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name), false)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs auto-migration for all models
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

// TableStatus reports whether a model's table exists
type TableStatus struct {
	Name   string
	Exists bool
}

// Tables lists every model's table and whether it has been created
func Tables(db *gorm.DB) []TableStatus {
	all := models.AllModels()
	out := make([]TableStatus, 0, len(all))
	for _, m := range all {
		stmt := &gorm.Statement{DB: db}
		name := ""
		if err := stmt.Parse(m); err == nil {
			name = stmt.Schema.Table
		}
		out = append(out, TableStatus{Name: name, Exists: db.Migrator().HasTable(m)})
	}
	return out
}

// createIndexes adds the composite indexes the feed and inbox queries use.
// Both dialects accept these statements.
func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
		"CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_replies_comment_created ON replies (comment_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created ON notifications (recipient_id, created_at DESC)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close closes the connection opened by Initialize
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
