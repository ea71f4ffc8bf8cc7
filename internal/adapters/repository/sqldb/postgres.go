package sqldb

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const postgresDriver = "postgres"

func openPostgres(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("postgres database url is required")
	}
	db, err := sql.Open(postgresDriver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	return &Store{
		dialect:    DialectPostgres,
		writer:     db,
		reader:     db,
		writeOpts:  &sql.TxOptions{Isolation: sql.LevelSerializable},
		readOpts:   &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
		driverName: postgresDriver,
		migrateDSN: cfg.URL,
	}, nil
}
