package preflight

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"stackhub/internal/database"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	db      *database.DB
	blobDir string
}

// NewChecker creates a new preflight checker
func NewChecker(db *database.DB, blobDir string) *Checker {
	return &Checker{db: db, blobDir: blobDir}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkDatabaseConnection(),
		c.checkDatabaseSchema(),
		c.checkBlobDir(),
	}

	// Print summary
	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("\n📊 Pre-flight summary: %d passed, %d failed, %d warnings\n", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkDatabaseConnection verifies database connectivity
func (c *Checker) checkDatabaseConnection() CheckResult {
	if err := c.db.Ping(); err != nil {
		return CheckResult{
			Name:    "Database Connection",
			Status:  "fail",
			Message: "Cannot connect to database",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Database Connection",
		Status:  "pass",
		Message: "Database connection successful",
	}
}

// checkDatabaseSchema verifies all required tables exist
func (c *Checker) checkDatabaseSchema() CheckResult {
	requiredTables := []string{
		"items",
		"embeddings",
	}

	for _, table := range requiredTables {
		var count int
		query := "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
		err := c.db.QueryRow(query, table).Scan(&count)
		if err != nil || count == 0 {
			return CheckResult{
				Name:    "Database Schema",
				Status:  "fail",
				Message: fmt.Sprintf("Required table '%s' not found", table),
				Error:   err,
			}
		}
	}

	return CheckResult{
		Name:    "Database Schema",
		Status:  "pass",
		Message: fmt.Sprintf("All %d required tables present", len(requiredTables)),
	}
}

// checkBlobDir verifies the artifact directory is writable
func (c *Checker) checkBlobDir() CheckResult {
	probe := filepath.Join(c.blobDir, ".preflight")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return CheckResult{
			Name:    "Blob Storage",
			Status:  "fail",
			Message: fmt.Sprintf("Artifact directory %s is not writable", c.blobDir),
			Error:   err,
		}
	}
	os.Remove(probe)

	return CheckResult{
		Name:    "Blob Storage",
		Status:  "pass",
		Message: fmt.Sprintf("Artifact directory %s is writable", c.blobDir),
	}
}
