package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enabling foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp_CreatesTables(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	tables := []string{"projects", "directories", "assets", "changelist_entries", "versions", "checkouts", "operations", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus(t *testing.T) {
	t.Run("fresh database needs migration", func(t *testing.T) {
		db := openTestDB(t)
		err := CheckDBMigrationStatus(db)
		if !errors.Is(err, ErrNeedsMigration) {
			t.Errorf("CheckDBMigrationStatus() error = %v, want ErrNeedsMigration", err)
		}
	})

	t.Run("migrated database is current", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() error = %v", err)
		}
		if err := CheckDBMigrationStatus(db); err != nil {
			t.Errorf("CheckDBMigrationStatus() error = %v", err)
		}
	})
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() error = %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() error = %v", err)
	}

	st, err := ReadStatus(db)
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if st.Current != st.Latest || st.Dirty {
		t.Errorf("ReadStatus() = %+v, want current == latest and clean", st)
	}
}

func TestSchema_ForeignKeys(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	_, err := db.Exec(`INSERT INTO directories (id, project_id, path, created_at)
		VALUES ('d1', 'missing-project', '/x', datetime('now'))`)
	if err == nil {
		t.Error("insert with unknown project succeeded, want foreign key violation")
	}
}

func TestSchema_OneActiveCheckoutPerAsset(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	setup := []string{
		`INSERT INTO projects (id, name, created_at) VALUES ('p1', 'maps', datetime('now'))`,
		`INSERT INTO directories (id, project_id, path, created_at) VALUES ('d1', 'p1', '/data', datetime('now'))`,
		`INSERT INTO assets (id, project_id, directory_id, relative_path, extension, size, content_hash, modified_at, first_seen_at, last_scanned_at, on_disk)
			VALUES ('a1', 'p1', 'd1', 'x.tif', '.tif', 1, 'h', datetime('now'), datetime('now'), datetime('now'), 1)`,
		`INSERT INTO checkouts (id, project_id, asset_id, holder, checked_out_at) VALUES ('c1', 'p1', 'a1', 'u1', datetime('now'))`,
	}
	for _, stmt := range setup {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("setup %q: %v", stmt, err)
		}
	}

	_, err := db.Exec(`INSERT INTO checkouts (id, project_id, asset_id, holder, checked_out_at) VALUES ('c2', 'p1', 'a1', 'u2', datetime('now'))`)
	if err == nil {
		t.Fatal("second active checkout succeeded, want unique violation")
	}

	if _, err := db.Exec(`UPDATE checkouts SET checked_in_at = datetime('now') WHERE id = 'c1'`); err != nil {
		t.Fatalf("checking in: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO checkouts (id, project_id, asset_id, holder, checked_out_at) VALUES ('c2', 'p1', 'a1', 'u2', datetime('now'))`); err != nil {
		t.Errorf("checkout after checkin error = %v", err)
	}
}
