// Package testutil holds helpers shared by tests across packages
package testutil

import (
	"bitwise74/capture-api/db"
	"bitwise74/capture-api/pkg/security"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

// NewDB returns a migrated sqlite database living in the test's temp dir
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Created up front, db.New refuses to create the file inside containers
	p := filepath.Join(t.TempDir(), "test.db")
	if err := os.WriteFile(p, nil, 0o600); err != nil {
		t.Fatalf("Failed to create test database file: %v", err)
	}

	d, err := db.New("sqlite", p)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() { db.Close(d) })
	return d
}

// NewArgon returns a password hasher with a low work factor
func NewArgon() *security.ArgonHash {
	return security.NewArgon(8*1024, 1, 1)
}
