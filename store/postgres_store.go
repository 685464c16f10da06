package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/internal/backoff"
	"github.com/theodorthegreathe/mvcr-application-checker/migrations"
	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	opTimeout = 5 * time.Second
)

// PostgresStore implements types.Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

type PostgresConfig struct {
	DSN        string
	MinConns   int32
	MaxConns   int32
	MaxRetries int
	RetryDelay time.Duration
}

// NewPostgresStore connects with bounded exponential-backoff retries, runs
// migrations and returns a ready store. Connection failure after the retry
// cap is the one fatal store error.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, log *zap.Logger) (*PostgresStore, error) {
	pc, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}

	var pool *pgxpool.Pool
	err = backoff.Retry(ctx, cfg.MaxRetries, cfg.RetryDelay, func(attempt int) error {
		var perr error
		pool, perr = pgxpool.NewWithConfig(ctx, pc)
		if perr == nil {
			if perr = pool.Ping(ctx); perr != nil {
				pool.Close()
			}
		}
		if perr != nil {
			log.Error("failed to connect to the database",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", cfg.MaxRetries),
				zap.Error(perr))
		}
		return perr
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	s := &PostgresStore{pool: pool, log: log}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("connected to the DB")
	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) CreateUser(ctx context.Context, u types.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	lang := u.Language
	if lang == "" {
		lang = "EN"
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (chat_id, username, first_name, last_name, language)
VALUES ($1, $2, $3, $4, $5)
`, u.ChatID, strings.TrimSpace(u.Username), strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName), lang)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return ErrDuplicateUser
		}
		s.log.Error("error while inserting user", zap.Int64("chat_id", u.ChatID), zap.Error(err))
		return err
	}
	return nil
}

func (s *PostgresStore) RemoveUser(ctx context.Context, chatID int64) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	// applications cascade via the foreign key
	_, err := s.pool.Exec(ctx, `DELETE FROM users WHERE chat_id = $1`, chatID)
	if err != nil {
		s.log.Error("error while removing user", zap.Int64("chat_id", chatID), zap.Error(err))
		return false
	}
	return true
}

func (s *PostgresStore) CreateApplication(ctx context.Context, chatID int64, key types.ApplicationKey) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO applications (chat_id, application_number, application_suffix, application_type, application_year)
VALUES ($1, $2, $3, $4, $5)
`, chatID, key.Number, key.Suffix, key.Type, key.Year)
	if err != nil {
		switch {
		case isPgCode(err, pgUniqueViolation):
			return ErrDuplicateApplication
		case isPgCode(err, pgForeignKeyViolation):
			return ErrUserNotFound
		}
		s.log.Error("error while inserting application",
			zap.Int64("chat_id", chatID),
			zap.String("application", key.String()),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *PostgresStore) RemoveApplication(ctx context.Context, chatID int64, key types.ApplicationKey) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	// missing row is still a success: the delete is idempotent
	_, err := s.pool.Exec(ctx, `
DELETE FROM applications
WHERE chat_id = $1 AND application_number = $2 AND application_suffix = $3
  AND application_type = $4 AND application_year = $5
`, chatID, key.Number, key.Suffix, key.Type, key.Year)
	if err != nil {
		s.log.Error("error while removing application",
			zap.Int64("chat_id", chatID),
			zap.String("application", key.String()),
			zap.Error(err))
		return false
	}
	return true
}

func (s *PostgresStore) ListApplications(ctx context.Context, chatID int64) []types.Application {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT chat_id, application_number, application_suffix, application_type, application_year,
       current_status, is_resolved, last_updated
FROM applications
WHERE chat_id = $1
ORDER BY created_at
`, chatID)
	if err != nil {
		s.log.Error("error while listing applications", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil
	}
	defer rows.Close()
	return scanApplications(rows, s.log)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, chatID int64, key types.ApplicationKey, status string, resolved bool) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	// GREATEST keeps last_updated monotonic under redelivered tasks
	_, err := s.pool.Exec(ctx, `
UPDATE applications
SET current_status = $1,
    is_resolved = $2,
    last_updated = GREATEST(COALESCE(last_updated, TIMESTAMPTZ 'epoch'), CURRENT_TIMESTAMP)
WHERE chat_id = $3 AND application_number = $4 AND application_suffix = $5
  AND application_type = $6 AND application_year = $7
`, status, resolved, chatID, key.Number, key.Suffix, key.Type, key.Year)
	if err != nil {
		s.log.Error("error while updating status",
			zap.Int64("chat_id", chatID),
			zap.String("application", key.String()),
			zap.Error(err))
		return false
	}
	return true
}

func (s *PostgresStore) TouchApplication(ctx context.Context, chatID int64, key types.ApplicationKey) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE applications
SET last_updated = GREATEST(COALESCE(last_updated, TIMESTAMPTZ 'epoch'), CURRENT_TIMESTAMP)
WHERE chat_id = $1 AND application_number = $2 AND application_suffix = $3
  AND application_type = $4 AND application_year = $5
`, chatID, key.Number, key.Suffix, key.Type, key.Year)
	if err != nil {
		s.log.Error("error while updating timestamp",
			zap.Int64("chat_id", chatID),
			zap.String("application", key.String()),
			zap.Error(err))
		return false
	}
	return true
}

func (s *PostgresStore) GetStatus(ctx context.Context, chatID int64, key types.ApplicationKey) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var status string
	err := s.pool.QueryRow(ctx, `
SELECT current_status FROM applications
WHERE chat_id = $1 AND application_number = $2 AND application_suffix = $3
  AND application_type = $4 AND application_year = $5
`, chatID, key.Number, key.Suffix, key.Type, key.Year).Scan(&status)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.Error("error while fetching application status",
				zap.Int64("chat_id", chatID),
				zap.String("application", key.String()),
				zap.Error(err))
		}
		return "", false
	}
	return status, true
}

func (s *PostgresStore) ApplicationsDueForRefresh(ctx context.Context, period time.Duration) []types.Application {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	// The staleness predicate runs against the store's clock; an application
	// never checked (NULL last_updated) collapses to epoch and is always due.
	rows, err := s.pool.Query(ctx, `
SELECT chat_id, application_number, application_suffix, application_type, application_year,
       current_status, is_resolved, last_updated
FROM applications
WHERE is_resolved = FALSE
  AND EXTRACT(EPOCH FROM (CURRENT_TIMESTAMP - COALESCE(last_updated, TIMESTAMPTZ 'epoch'))) > $1
`, period.Seconds())
	if err != nil {
		s.log.Error("error while fetching applications needing update", zap.Error(err))
		return nil
	}
	defer rows.Close()
	return scanApplications(rows, s.log)
}

func (s *PostgresStore) GetUserLanguage(ctx context.Context, chatID int64) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var lang string
	err := s.pool.QueryRow(ctx, `SELECT language FROM users WHERE chat_id = $1`, chatID).Scan(&lang)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.Error("error while fetching user language", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return "", false
	}
	return lang, true
}

func (s *PostgresStore) SetUserLanguage(ctx context.Context, chatID int64, lang string) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.pool.Exec(ctx, `UPDATE users SET language = $1 WHERE chat_id = $2`, lang, chatID)
	if err != nil {
		s.log.Error("error while updating user language", zap.Int64("chat_id", chatID), zap.Error(err))
		return false
	}
	return true
}

func (s *PostgresStore) CountSubscriptions(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applications`).Scan(&count)
	if err != nil {
		s.log.Error("error while counting subscriptions", zap.Error(err))
		return 0
	}
	return count
}

func scanApplications(rows pgx.Rows, log *zap.Logger) []types.Application {
	var apps []types.Application
	for rows.Next() {
		var a types.Application
		if err := rows.Scan(&a.ChatID, &a.Key.Number, &a.Key.Suffix, &a.Key.Type, &a.Key.Year,
			&a.CurrentStatus, &a.IsResolved, &a.LastUpdated); err != nil {
			log.Error("error while scanning application row", zap.Error(err))
			continue
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		log.Error("error while reading application rows", zap.Error(err))
	}
	return apps
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
