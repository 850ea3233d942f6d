package sqliteutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects a local sqlite file or a remote libsql database.
type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (c Config) Enabled() bool {
	return c.File != "" || c.Url != ""
}

// OpenDB opens the configured database and applies schema to it.
func (c Config) OpenDB(schema string) (*sql.DB, error) {
	if c.Url == "" {
		if c.File == "" {
			return nil, fmt.Errorf("neither a database file nor a url was specified")
		}
		return OpenDB(schema, c.File)
	}

	values := url.Values{}
	if c.AuthToken != "" {
		values.Add("authToken", c.AuthToken)
	}
	target := c.Url
	if len(values) > 0 {
		target += "?" + values.Encode()
	}
	db, err := sql.Open("libsql", target)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	if err := migrate(db, schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenDB opens a local sqlite database, creating the file and its parent
// directory when needed, and applies schema.
func OpenDB(schema, path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrate(db, schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB, schema string) error {
	if schema == "" {
		return nil
	}
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
