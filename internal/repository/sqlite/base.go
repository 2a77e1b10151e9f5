package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/patrickmn/go-cache"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/jwalitptl/clinic-store/pkg/errors"
	"github.com/jwalitptl/clinic-store/pkg/logger"
	"github.com/jwalitptl/clinic-store/pkg/metrics"
	"github.com/jwalitptl/clinic-store/pkg/validator"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db        *sqlx.DB
	tx        *sqlx.Tx
	log       *logger.Logger
	metrics   *metrics.Metrics
	validator validator.Validator
	loc       *time.Location
	employees *cache.Cache
}

// Option configures a BaseRepository.
type Option func(*BaseRepository)

func WithLogger(l *logger.Logger) Option {
	return func(r *BaseRepository) { r.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *BaseRepository) { r.metrics = m }
}

// WithLocation sets the zone appointment dates are written and read in.
func WithLocation(loc *time.Location) Option {
	return func(r *BaseRepository) { r.loc = loc }
}

// WithEmployeeCache replaces the default employee cache.
func WithEmployeeCache(c *cache.Cache) Option {
	return func(r *BaseRepository) { r.employees = c }
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *DB, opts ...Option) BaseRepository {
	r := BaseRepository{
		db:        db.DB,
		validator: validator.New(),
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	if r.employees == nil {
		r.employees = cache.New(10*time.Minute, 30*time.Minute)
	}
	r.log = r.log.WithFields(map[string]interface{}{
		"component": "store",
		"session":   uuid.NewString(),
	})
	return r
}

// ext is the transaction when bound to one, the database otherwise.
func (r *BaseRepository) ext() sqlx.ExtContext {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// bind returns a copy that runs every statement on tx.
func (r BaseRepository) bind(tx *sqlx.Tx) BaseRepository {
	r.tx = tx
	return r
}

// WithTx executes a function within a transaction. When the repository is
// already bound to a transaction, fn joins it.
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *BaseRepository) exec(ctx context.Context, ext sqlx.ExtContext, query string, arg map[string]interface{}) (int64, error) {
	q, args, err := expand(query, arg)
	if err != nil {
		return 0, err
	}
	res, err := ext.ExecContext(ctx, ext.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *BaseRepository) selectAll(ctx context.Context, ext sqlx.ExtContext, dest interface{}, query string, arg map[string]interface{}) error {
	q, args, err := expand(query, arg)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, ext, dest, ext.Rebind(q), args...)
}

// get returns sql.ErrNoRows untouched.
func (r *BaseRepository) get(ctx context.Context, ext sqlx.ExtContext, dest interface{}, query string, arg map[string]interface{}) error {
	q, args, err := expand(query, arg)
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, ext, dest, ext.Rebind(q), args...)
}

func (r *BaseRepository) validate(resource string, v interface{}) error {
	if err := r.validator.Validate(v); err != nil {
		return apperrors.NewBadRequest("invalid "+resource, err)
	}
	return nil
}

// track records the outcome of operation. Use it deferred with the named
// error result.
func (r *BaseRepository) track(operation string, started time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	r.metrics.Observe(operation, started, err)
	if err == nil {
		return
	}
	if _, known := apperrors.CodeOf(err); known && !apperrors.IsInternal(err) {
		r.log.Warn("store operation rejected", "operation", operation, "error", err.Error())
		return
	}
	r.log.Error(err, "store operation failed", "operation", operation)
}

// isUniqueViolation reports primary key and unique constraint failures.
func isUniqueViolation(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return sqlErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqlErr.Error(), "UNIQUE constraint failed")
}

func translate(err error, resource string) error {
	if isUniqueViolation(err) {
		return apperrors.NewConflict(resource, err)
	}
	return err
}
