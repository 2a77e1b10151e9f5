package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/jwalitptl/clinic-store/internal/config"
	apperrors "github.com/jwalitptl/clinic-store/pkg/errors"
	"github.com/jwalitptl/clinic-store/pkg/logger"
)

const (
	driverName  = "sqlite"
	defaultPath = "clinic.db"
	memoryPath  = ":memory:"
)

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// DB is the single handle on the store file. It is owned by the caller of
// NewDB, who must Close it.
type DB struct {
	*sqlx.DB
	path    string
	created bool
}

// Path returns the backing file.
func (db *DB) Path() string { return db.path }

// Created reports whether the schema was created when this handle was opened.
func (db *DB) Created() bool { return db.created }

// NewDB opens the store at cfg.Path. With cfg.Reset the previous file is
// removed first. The schema is created only when the file did not exist.
func NewDB(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.Nop()
	}
	path := cfg.Path
	if path == "" {
		path = defaultPath
	}
	inMemory := path == memoryPath

	if cfg.Reset && !inMemory {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewInternal(fmt.Errorf("failed to remove store %s: %w", path, err))
		}
		log.Info("store reset", "path", path)
	}

	created := inMemory
	if !inMemory {
		_, err := os.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			created = true
		case err != nil:
			return nil, apperrors.NewInternal(fmt.Errorf("failed to stat store %s: %w", path, err))
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, apperrors.NewInternal(fmt.Errorf("failed to create store directory: %w", err))
		}
	}

	conn, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to open store: %w", err))
	}
	// one handle, one connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, apperrors.NewInternal(fmt.Errorf("failed to ping store: %w", err))
	}

	if created {
		if err := createSchema(ctx, conn); err != nil {
			_ = conn.Close()
			if !inMemory {
				_ = os.Remove(path)
			}
			return nil, apperrors.NewInternal(err)
		}
		log.Info("store schema created", "path", path)
	}

	log.Debug("store opened", "path", path, "created", created)
	return &DB{DB: conn, path: path, created: created}, nil
}
