package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

func sqliteDSN(path string, busyMillis int64, txLock string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyMillis))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(FULL)")
	if txLock != "" {
		q.Set("_txlock", txLock)
	}
	return "file:" + path + "?" + q.Encode()
}

func openSQLite(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite database path is required")
	}
	busy := cfg.BusyTimeout.Milliseconds()

	// Write transactions take the file lock at BEGIN so two writers never
	// deadlock upgrading a shared lock.
	writerDSN := sqliteDSN(cfg.Path, busy, "immediate")
	writer, err := sql.Open(sqliteDriver, writerDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open(sqliteDriver, sqliteDSN(cfg.Path, busy, ""))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to open sqlite reader: %w", err)
	}
	reader.SetMaxOpenConns(cfg.MaxReaders)

	return &Store{
		dialect:    DialectSQLite,
		writer:     writer,
		reader:     reader,
		driverName: sqliteDriver,
		migrateDSN: writerDSN,
	}, nil
}
