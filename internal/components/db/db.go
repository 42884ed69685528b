package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config points at either a local sqlite file or a remote libsql database.
type Config struct {
	// File is a path to a sqlite database, `:memory:` is allowed.
	File string `json:"file"`
	// Url is a libsql url, ex. `libsql://coursewatch.turso.io`. It takes
	// precedence over File when set.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (c Config) Enabled() bool {
	return c.File != "" || c.Url != ""
}

// Open opens the database and applies schema. sqlite databases are opened
// in WAL mode with a single connection.
func (c Config) Open(schema string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch {
	case c.Url != "":
		db, err = c.openRemote()
	case c.File != "":
		db, err = c.openFile()
	default:
		return nil, fmt.Errorf("neither a file nor a url was specified")
	}
	if err != nil {
		return nil, err
	}

	if schema != "" {
		_, err = db.Exec(schema)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}

func (c Config) openRemote() (*sql.DB, error) {
	dsn := c.Url
	if c.AuthToken != "" {
		parsed, err := url.Parse(c.Url)
		if err != nil {
			return nil, err
		}
		query := parsed.Query()
		query.Set("authToken", c.AuthToken)
		parsed.RawQuery = query.Encode()
		dsn = parsed.String()
	}
	return sql.Open("libsql", dsn)
}

func (c Config) openFile() (*sql.DB, error) {
	if c.File != ":memory:" {
		err := os.MkdirAll(filepath.Dir(c.File), 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", c.File)
	if err != nil {
		return nil, err
	}
	// sqlite only supports a single writer
	db.SetMaxOpenConns(1)
	if c.File != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
