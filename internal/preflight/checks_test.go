package preflight

import (
	"path/filepath"
	"testing"

	"stackhub/internal/database"
)

func setupPreflightTest(t *testing.T) (*database.DB, string) {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, dir
}

func TestRunAllPasses(t *testing.T) {
	db, blobDir := setupPreflightTest(t)

	checker := NewChecker(db, blobDir)
	results := checker.RunAll()

	if len(results) != 3 {
		t.Fatalf("Expected 3 check results, got %d", len(results))
	}
	if HasFailures(results) {
		for _, r := range results {
			if r.Status == "fail" {
				t.Errorf("Check %s failed: %s (%v)", r.Name, r.Message, r.Error)
			}
		}
	}
}

func TestCheckDatabaseSchema_MissingTable(t *testing.T) {
	db, blobDir := setupPreflightTest(t)

	if _, err := db.Exec("DROP TABLE embeddings"); err != nil {
		t.Fatalf("Failed to drop table: %v", err)
	}

	checker := NewChecker(db, blobDir)
	result := checker.checkDatabaseSchema()

	if result.Status != "fail" {
		t.Errorf("Expected status 'fail', got '%s'", result.Status)
	}
}

func TestCheckBlobDir_NotWritable(t *testing.T) {
	db, blobDir := setupPreflightTest(t)

	checker := NewChecker(db, filepath.Join(blobDir, "does", "not", "exist"))
	result := checker.checkBlobDir()

	if result.Status != "fail" {
		t.Errorf("Expected status 'fail', got '%s'", result.Status)
	}
}

func TestHasFailures(t *testing.T) {
	results := []CheckResult{
		{Name: "A", Status: "pass"},
		{Name: "B", Status: "warning"},
	}
	if HasFailures(results) {
		t.Error("Expected no failures")
	}

	results = append(results, CheckResult{Name: "C", Status: "fail"})
	if !HasFailures(results) {
		t.Error("Expected a failure")
	}
}
