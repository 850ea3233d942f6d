package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"tixwatch-backend/lib/sqliteutil"
	"tixwatch-backend/lib/telemetry"
)

type DBParams struct {
	Name   string
	Schema string
	// if unspecified, a file in a fresh temp dir is used
	Path string
}

// SetupDB sets up telemetry for the test and opens a sqlite database with
// params.Schema applied. The database is closed when the test ends.
func SetupDB(t testing.TB, params DBParams) *sql.DB {
	cleanup := telemetry.SetupForTesting(fmt.Sprintf("test:%s", params.Name))
	t.Cleanup(cleanup)

	path := params.Path
	if path == "" {
		path = filepath.Join(t.TempDir(), params.Name+".db")
	}
	database, err := sqliteutil.OpenDB(params.Schema, path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
