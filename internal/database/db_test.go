package database

import (
	"testing"
	"testing/fstest"
)

func TestReadMigrationFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_add_index.up.sql":     {Data: []byte("CREATE INDEX x ON t (a);")},
		"m/000001_init_schema.up.sql":   {Data: []byte("CREATE TABLE t (a INT);")},
		"m/000001_init_schema.down.sql": {Data: []byte("DROP TABLE t;")},
		"m/readme.md":                   {Data: []byte("notes")},
		"m/abc_bad.up.sql":              {Data: []byte("SELECT 1;")},
	}

	got, err := readMigrationFiles(fsys, "m")
	if err != nil {
		t.Fatalf("readMigrationFiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d migrations, want 2: %+v", len(got), got)
	}
	if got[0].Version != 1 || got[0].Name != "init_schema" || got[1].Version != 2 || got[1].Name != "add_index" {
		t.Errorf("order/names: got %+v", got)
	}
	if lastVersion(got) != 2 || lastVersion(nil) != 0 {
		t.Errorf("lastVersion: got %d", lastVersion(got))
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := readMigrationFiles(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("readMigrationFiles: %v", err)
	}
	if len(got) == 0 || got[0].Version != 1 {
		t.Errorf("embedded migrations: got %+v", got)
	}
}
