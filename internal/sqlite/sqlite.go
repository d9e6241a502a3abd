// Package sqlite stores the generation run log in SQLite.
package sqlite

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/random"
)

//go:embed schema.sql
var schemaDefinition string

type Database struct {
	ReadWrite *sqlx.DB
	ReadOnly  *sqlx.DB
	logger    *slog.Logger
}

// NewDatabase connects to the database at url and synchronizes it with the schema.
//
// Writes go through a single connection and reads through a separate read-only pool, as recommended in
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995.
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database. Every
// in-memory database gets a random name so that parallel tests do not share data.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	var (
		readWriteDSN string
		readOnlyDSN  string
	)
	// Options prefixed with '_' are pragmas, see https://www.sqlite.org/pragma.html.
	pragmas := strings.Join([]string{
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, "&")
	if strings.Contains(url, ":memory:") {
		name, err := random.Letters(20) //nolint:mnd // long enough to avoid collisions
		if err != nil {
			return nil, errors.Wrap(err, "generate in-memory database name")
		}
		// Shared cache lets both pools see the same in-memory database.
		base := fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", name, pragmas)
		readWriteDSN = base + "&_txlock=immediate"
		readOnlyDSN = base + "&_query_only=true"
	} else {
		readWriteDSN = fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s", url, pragmas)
		readOnlyDSN = fmt.Sprintf("file:%s?mode=ro&_query_only=true&%s", url, pragmas)
	}

	readWrite, err := sqlx.Open("sqlite3", readWriteDSN)
	if err != nil {
		return nil, errors.Wrap(err, "open read-write database")
	}
	readWrite.SetMaxOpenConns(1)
	readWrite.SetMaxIdleConns(1)
	readWrite.SetConnMaxLifetime(time.Hour)
	readWrite.SetConnMaxIdleTime(time.Hour)

	db := Database{
		ReadWrite: readWrite,
		ReadOnly:  nil,
		logger:    logger,
	}

	// The schema must exist before a read-only connection can open a fresh database file.
	if err = db.syncSchema(ctx, schemaDefinition); err != nil {
		_ = readWrite.Close()
		return nil, errors.Wrap(err, "synchronize schema")
	}

	readOnly, err := sqlx.Open("sqlite3", readOnlyDSN)
	if err != nil {
		_ = readWrite.Close()
		return nil, errors.Wrap(err, "open read-only database")
	}
	maxReadConns := 10
	readOnly.SetMaxOpenConns(maxReadConns)
	readOnly.SetMaxIdleConns(maxReadConns)
	readOnly.SetConnMaxLifetime(time.Hour)
	readOnly.SetConnMaxIdleTime(time.Hour)
	db.ReadOnly = readOnly

	go db.runOptimizer(ctx)

	return &db, nil
}

func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
