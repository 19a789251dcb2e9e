package db

import (
	"reflect"
	"testing"
	"testing/fstest"
)

func TestMigrationFilesOrdered(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_outbox.sql":       {Data: []byte("SELECT 2;")},
		"0001_reservations.sql": {Data: []byte("SELECT 1;")},
		"README.md":             {Data: []byte("notes")},
		"archive/0000_old.sql":  {Data: []byte("SELECT 0;")},
	}
	got, err := migrationFiles(fsys)
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	want := []string{"0001_reservations.sql", "0002_outbox.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
