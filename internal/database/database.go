// Package database opens the sqlite store and keeps the schema current.
package database

import (
	"os"
	"path/filepath"

	"github.com/brokenrx/rx-auth/authcode"
	"github.com/brokenrx/rx-auth/clients"
	"github.com/brokenrx/rx-auth/internal/config"
	"github.com/brokenrx/rx-auth/rx"
	"github.com/brokenrx/rx-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured sqlite database, creating the parent
// directory if needed, and migrates all tables.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dbPath := cfg.GetDBPath()
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrap(err, "[database.Open] create data directory")
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[database.Open] open sqlite")
	}

	if err := db.AutoMigrate(
		&users.User{},
		&clients.Client{},
		&authcode.AuthorizationCode{},
		&rx.Prescription{},
	); err != nil {
		return nil, errors.Wrap(err, "[database.Open] migrate")
	}

	log.Info().Str("path", dbPath).Msg("database ready")
	return db, nil
}
