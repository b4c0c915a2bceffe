package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite holds one blog instance's database. Each blog gets its own file.
type SQLite struct {
	path string
	conn *sql.DB
}

func NewSQLite(path string) *SQLite {
	return &SQLite{
		path: path,
		conn: nil,
	}
}

// schema creates the blog's two tables: the key/value config table read at
// startup, and the posts table. The post id is the generated slug; seq is
// the creation sequence position the id was encoded from.
const schema = `
CREATE TABLE IF NOT EXISTS config (
    param TEXT PRIMARY KEY,
    value TEXT
);

CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    seq INTEGER NOT NULL UNIQUE,
    url TEXT UNIQUE,
    title TEXT,
    summary TEXT,
    content BLOB,
    date_published TEXT,
    date_modified TEXT,
    tags TEXT,
    public INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0
);`

func (s *SQLite) InitDb() error {
	var err error
	s.conn, err = sql.Open("sqlite3", s.path)
	if err != nil {
		return err
	}

	// One connection keeps SQLite writes serialized and avoids SQLITE_BUSY
	// at this service's scale.
	s.conn.SetMaxOpenConns(1)

	if _, err := s.conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return err
	}

	res, err := s.conn.Exec(schema)
	if err != nil {
		return err
	}

	dbLogger.Info().Str("path", s.path).Any("db_result", res).Msg("Database initialized")
	return nil
}

// Reset drops and recreates the blog, seeding the config table from params.
// This is the destructive path behind "blogctl init"; it cannot be undone.
func (s *SQLite) Reset(params map[string]string) error {
	if s.conn == nil {
		if err := s.InitDb(); err != nil {
			return err
		}
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS config;`,
		`DROP TABLE IF EXISTS posts;`,
		schema,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("resetting blog: %w", err)
		}
	}

	for param, value := range params {
		if _, err := tx.Exec(`INSERT INTO config (param, value) VALUES (?, ?)`, param, value); err != nil {
			return fmt.Errorf("seeding config %q: %w", param, err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLite) Query(query string, args ...interface{}) (*sql.Rows, error) {
	dbLogger.Debug().Str("query", query).Msg("Query")
	return s.conn.Query(query, args...)
}

func (s *SQLite) Exec(query string, args ...interface{}) (sql.Result, error) {
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return s.conn.Exec(query, args...)
}
