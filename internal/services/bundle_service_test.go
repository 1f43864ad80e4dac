package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"stackhub/internal/database"
	"stackhub/internal/models"
)

func setupBundleService(t *testing.T) *BundleService {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	items := NewItemService(db, nil)
	ctx := context.Background()
	seed := []*models.Item{
		{ID: "caddy", Name: "Caddy", Ports: []int{80, 443}, ScriptPrimary: "true"},
		{ID: "nginx", Name: "Nginx", Ports: []int{80, 443}, ScriptPrimary: "true"},
		{ID: "fail2ban", Name: "Fail2ban", ScriptPrimary: "true"},
	}
	for _, it := range seed {
		if _, err := items.Upsert(ctx, it); err != nil {
			t.Fatalf("Failed to seed %s: %v", it.ID, err)
		}
	}
	return NewBundleService(items)
}

func TestLoadBundlesFromFile(t *testing.T) {
	svc := setupBundleService(t)

	path := filepath.Join(t.TempDir(), "bundles.yml")
	doc := `bundles:
  - id: harden-basic
    name: "Harden: Basic Server"
    description: Fail2ban plus a reverse proxy
    item_ids: [fail2ban, caddy]
  - id: web-stack
    name: Web Stack
    item_ids:
      - caddy
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write bundles file: %v", err)
	}

	if err := svc.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	bundles := svc.List()
	if len(bundles) != 2 {
		t.Fatalf("Expected 2 bundles, got %d", len(bundles))
	}
	if bundles[0].ID != "harden-basic" || len(bundles[0].ItemIDs) != 2 {
		t.Errorf("Unexpected first bundle: %+v", bundles[0])
	}
}

func TestLoadBundlesRejectsEmptySelection(t *testing.T) {
	svc := setupBundleService(t)

	path := filepath.Join(t.TempDir(), "bundles.yml")
	doc := `bundles:
  - id: empty
    name: Empty
    item_ids: []
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write bundles file: %v", err)
	}

	if err := svc.LoadFromFile(path); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for empty item_ids, got %v", err)
	}
	if len(svc.List()) != 0 {
		t.Error("A rejected file must not replace the loaded bundles")
	}
}

func TestListWithoutFile(t *testing.T) {
	svc := setupBundleService(t)
	if got := svc.List(); got == nil || len(got) != 0 {
		t.Errorf("List without a file should return an empty slice, got %v", got)
	}
}

func TestValidatePortsConflicts(t *testing.T) {
	svc := setupBundleService(t)

	conflicts, err := svc.ValidatePorts(context.Background(), []string{"caddy", "nginx", "fail2ban"})
	if err != nil {
		t.Fatalf("ValidatePorts failed: %v", err)
	}
	if len(conflicts) != 2 {
		t.Fatalf("Expected 2 conflicts, got %d", len(conflicts))
	}
	if conflicts[0].Port != 80 || conflicts[1].Port != 443 {
		t.Errorf("Conflicts should be ordered by port: %d, %d", conflicts[0].Port, conflicts[1].Port)
	}
	if len(conflicts[0].Items) != 2 {
		t.Errorf("Expected 2 claimants on port 80, got %v", conflicts[0].Items)
	}
}

func TestValidatePortsClean(t *testing.T) {
	svc := setupBundleService(t)

	conflicts, err := svc.ValidatePorts(context.Background(), []string{"caddy", "fail2ban"})
	if err != nil {
		t.Fatalf("ValidatePorts failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %v", conflicts)
	}
}

func TestValidatePortsUnknownID(t *testing.T) {
	svc := setupBundleService(t)

	_, err := svc.ValidatePorts(context.Background(), []string{"caddy", "ghost"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if _, err := svc.ValidatePorts(context.Background(), nil); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for empty selection, got %v", err)
	}
}
