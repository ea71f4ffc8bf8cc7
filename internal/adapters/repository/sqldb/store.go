package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type Config struct {
	Dialect Dialect
	// Path is the database file for DialectSQLite.
	Path string
	// URL is the connection string for DialectPostgres.
	URL         string
	TxTimeout   time.Duration
	BusyTimeout time.Duration
	MaxReaders  int
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the transactional persistence layer. With SQLite it keeps a
// single-connection writer pool and a separate reader pool on the same file.
type Store struct {
	dialect    Dialect
	writer     *sql.DB
	reader     *sql.DB
	writeOpts  *sql.TxOptions
	readOpts   *sql.TxOptions
	txTimeout  time.Duration
	driverName string
	migrateDSN string
	l          *zap.Logger
}

var _ ports.Store = (*Store)(nil)

func Open(ctx context.Context, cfg Config, l *zap.Logger) (*Store, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 5 * time.Second
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = cfg.TxTimeout
	}
	if cfg.MaxReaders <= 0 {
		cfg.MaxReaders = 4
	}

	var (
		s   *Store
		err error
	)
	switch cfg.Dialect {
	case DialectSQLite, "":
		s, err = openSQLite(cfg)
	case DialectPostgres:
		s, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Dialect)
	}
	if err != nil {
		return nil, err
	}
	s.txTimeout = cfg.TxTimeout
	s.l = l

	if err := s.writer.PingContext(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	l.Info("database opened", zap.String("dialect", string(s.dialect)))
	return s, nil
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	errW := s.writer.Close()
	if s.reader != s.writer {
		return errors.Join(errW, s.reader.Close())
	}
	return errW
}

func (s *Store) WithinTx(ctx context.Context, fn ports.TxFunc) error {
	return s.run(ctx, s.writer, s.writeOpts, fn)
}

func (s *Store) ReadTx(ctx context.Context, fn ports.TxFunc) error {
	return s.run(ctx, s.reader, s.readOpts, fn)
}

func (s *Store) run(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn ports.TxFunc) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.l.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(ctx, repositories(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

func repositories(q querier) ports.Repositories {
	return ports.Repositories{
		Elections:  &electionRepository{q: q},
		Candidates: &candidateRepository{q: q},
		Votes:      &voteRepository{q: q},
	}
}
