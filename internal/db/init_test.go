package db_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/atinyakov/esgp/internal/db"
)

func TestInitSQLite_ErrorPaths(t *testing.T) {
	cases := []struct {
		name       string
		path       string
		wantSubstr string
	}{
		{"empty path", "", "open sqlite"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.InitSQLite(tc.path)
			if err == nil {
				t.Fatalf("InitSQLite(%q) did not return error", tc.path)
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("InitSQLite(%q) error = %q; want substring %q", tc.path, err.Error(), tc.wantSubstr)
			}
		})
	}
}

func TestInitSQLite_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "esgp.db")

	conn, err := db.InitSQLite(path)
	if err != nil {
		t.Fatalf("InitSQLite failed: %v", err)
	}
	defer conn.Close()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&n); err != nil {
		t.Fatalf("settings table missing: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh database has %d rows; want 0", n)
	}

	// Reopening an initialized database is a no-op.
	again, err := db.InitSQLite(path)
	if err != nil {
		t.Fatalf("second InitSQLite failed: %v", err)
	}
	again.Close()
}
