package database

import (
	"path/filepath"
	"testing"

	"dular-server/config"
	"dular-server/models"
)

func TestOpenSqliteAndAutoMigrate(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "dular_test.db")}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(cfg, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, m := range Models() {
		if !db.Migrator().HasTable(m) {
			t.Errorf("missing table for %T", m)
		}
	}

	u := models.User{FullName: "Ana", PhoneNumber: "+5565999990000", PasswordHash: "x", Role: models.Role("root")}
	if err := db.Create(&u).Error; err == nil {
		t.Errorf("expected role check constraint to reject unknown role")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "mysql", URL: "x"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := Open(config.DatabaseConfig{Driver: "sqlite"}); err == nil {
		t.Fatal("expected error for empty URL")
	}
}
