package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"stackhub/internal/blobstore"
	"stackhub/internal/database"
	"stackhub/internal/export"
	"stackhub/internal/models"
)

func setupExportService(t *testing.T) (*ExportService, *blobstore.Store) {
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

	blobs, err := blobstore.New(filepath.Join(dir, "artifacts"))
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	items := NewItemService(db, nil)
	ctx := context.Background()
	seed := []*models.Item{
		{
			ID:            "fail2ban",
			Name:          "Fail2ban",
			Category:      "security",
			Tags:          []string{"ssh"},
			ScriptPrimary: "apt-get install -y fail2ban\nsystemctl enable --now fail2ban",
		},
		{
			ID:              "docker-core",
			Name:            "Docker Core",
			Category:        "containers",
			Ports:           []int{2375},
			ScriptPrimary:   "curl -fsSL https://get.docker.com | sh",
			ScriptAlternate: "- name: install docker",
		},
	}
	for _, it := range seed {
		if _, err := items.Upsert(ctx, it); err != nil {
			t.Fatalf("Failed to seed item %s: %v", it.ID, err)
		}
	}

	return NewExportService(items, blobs, NewMemoryResponseCache(0), nil), blobs
}

func TestGetOrCreateShellScript(t *testing.T) {
	svc, blobs := setupExportService(t)

	res, err := svc.GetOrCreate(context.Background(), export.FormatShellScript, []string{"fail2ban", "docker-core"})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if res.FromCache {
		t.Error("First request should not be a cache hit")
	}
	if !strings.HasPrefix(res.Content, "#!/usr/bin/env bash") {
		t.Error("Shell export should start with a shebang")
	}
	if !strings.Contains(res.Content, "### BEGIN: Fail2ban") {
		t.Error("Shell export should contain the fail2ban block")
	}
	if res.Filename != "stackhub-export.sh" {
		t.Errorf("Unexpected filename: %s", res.Filename)
	}
	if res.SharePath != "/share/"+res.Digest {
		t.Errorf("Unexpected share path: %s", res.SharePath)
	}
	if res.Headers["X-Export-Hash"] != res.Digest {
		t.Error("X-Export-Hash header should carry the digest")
	}

	exists, err := blobs.Exists(blobstore.Key(res.Digest, "sh"))
	if err != nil || !exists {
		t.Errorf("Artifact should be durably stored (exists=%v, err=%v)", exists, err)
	}
}

func TestGetOrCreateCacheHit(t *testing.T) {
	svc, _ := setupExportService(t)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, export.FormatShellScript, []string{"fail2ban"})
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	second, err := svc.GetOrCreate(ctx, export.FormatShellScript, []string{"fail2ban"})
	if err != nil {
		t.Fatalf("Second request failed: %v", err)
	}
	if !second.FromCache {
		t.Error("Second request should be served from cache")
	}
	if second.Content != first.Content {
		t.Error("Cached artifact should be byte-identical")
	}
	if second.Digest != first.Digest {
		t.Error("Digest should be stable across requests")
	}
}

func TestDigestIgnoresIDOrder(t *testing.T) {
	svc, _ := setupExportService(t)
	ctx := context.Background()

	a, err := svc.GetOrCreate(ctx, export.FormatShellScript, []string{"fail2ban", "docker-core"})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	b, err := svc.GetOrCreate(ctx, export.FormatShellScript, []string{"docker-core", "fail2ban"})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if a.Digest != b.Digest {
		t.Errorf("Digest must not depend on id submission order: %s vs %s", a.Digest, b.Digest)
	}
}

func TestDigestDiffersByFormat(t *testing.T) {
	svc, _ := setupExportService(t)
	ctx := context.Background()

	sh, err := svc.GetOrCreate(ctx, export.FormatShellScript, []string{"docker-core"})
	if err != nil {
		t.Fatalf("Shell request failed: %v", err)
	}
	yml, err := svc.GetOrCreate(ctx, export.FormatPlaybook, []string{"docker-core"})
	if err != nil {
		t.Fatalf("Playbook request failed: %v", err)
	}
	if sh.Digest == yml.Digest {
		t.Error("Same selection in different formats must not share a digest")
	}
}

func TestShareRoundTrip(t *testing.T) {
	svc, _ := setupExportService(t)
	ctx := context.Background()

	created, err := svc.GetOrCreate(ctx, export.FormatPlaybook, []string{"docker-core"})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	shared, err := svc.Share(ctx, created.Digest)
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}
	if shared.Content != created.Content {
		t.Error("Shared artifact should match the stored one")
	}
	if shared.Filename != "stackhub-export.yml" {
		t.Errorf("Unexpected shared filename: %s", shared.Filename)
	}
}

func TestShareUnknownDigest(t *testing.T) {
	svc, _ := setupExportService(t)

	_, err := svc.Share(context.Background(), strings.Repeat("ab", 32))
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown digest, got %v", err)
	}
}

func TestShareRejectsMalformedDigest(t *testing.T) {
	svc, _ := setupExportService(t)
	ctx := context.Background()

	// Keys that are not full lowercase hex digests never reach the
	// filesystem, traversal-shaped ones included.
	for _, digest := range []string{
		"",
		"deadbeef",
		strings.Repeat("AB", 32),
		"../../etc/passwd",
		strings.Repeat("a", 63) + "/",
	} {
		_, err := svc.Share(ctx, digest)
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Digest %q should be ErrNotFound, got %v", digest, err)
		}
	}
}

func TestUnsupportedFormat(t *testing.T) {
	svc, blobs := setupExportService(t)

	_, err := svc.GetOrCreate(context.Background(), "bogus", []string{"fail2ban"})
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}

	// Nothing should have been written for a rejected format.
	for _, ext := range export.Extensions() {
		exists, _ := blobs.Exists(blobstore.Key(strings.Repeat("ab", 32), ext))
		if exists {
			t.Error("Rejected format must not write artifacts")
		}
	}
}

func TestUnknownItemID(t *testing.T) {
	svc, _ := setupExportService(t)

	_, err := svc.GetOrCreate(context.Background(), export.FormatShellScript, []string{"fail2ban", "ghost"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestEmptySelection(t *testing.T) {
	svc, _ := setupExportService(t)

	_, err := svc.GetOrCreate(context.Background(), export.FormatShellScript, nil)
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for empty selection, got %v", err)
	}
}

func TestDigestIgnoresTimestamp(t *testing.T) {
	items := []models.Item{
		{ID: "a", Name: "A", ScriptPrimary: "true"},
		{ID: "b", Name: "B", ScriptPrimary: "true"},
	}

	d1, err := Digest(export.FormatShellScript, items)
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	// Reversed slice, same field-sets.
	d2, err := Digest(export.FormatShellScript, []models.Item{items[1], items[0]})
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	if d1 != d2 {
		t.Error("Digest must be canonical over item order")
	}
	if len(d1) != 64 {
		t.Errorf("Digest should be 64 hex chars, got %d", len(d1))
	}
}
