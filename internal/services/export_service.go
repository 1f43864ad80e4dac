package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"stackhub/internal/blobstore"
	"stackhub/internal/export"
	"stackhub/internal/logging"
	"stackhub/internal/models"
)

// ExportService builds export artifacts and deduplicates them by
// content digest. The digest is computed over the canonical structured
// input (format + resolved item field-sets sorted by id), never over
// the rendered text, so the manifest timestamp and the submission order
// of ids cannot perturb it.
type ExportService struct {
	items   *ItemService
	blobs   *blobstore.Store
	cache   ResponseCache
	metrics *Metrics
}

// ExportResult is one served artifact.
type ExportResult struct {
	Content   string
	Digest    string
	SharePath string
	Filename  string
	Headers   map[string]string
	FromCache bool
}

// NewExportService creates a new export service
func NewExportService(items *ItemService, blobs *blobstore.Store, cache ResponseCache, metrics *Metrics) *ExportService {
	return &ExportService{items: items, blobs: blobs, cache: cache, metrics: metrics}
}

// GetOrCreate resolves the selection, renders it, and serves the
// artifact from cache or durable storage, storing it on first sight.
func (s *ExportService) GetOrCreate(ctx context.Context, format string, ids []string) (*ExportResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no item ids selected", models.ErrValidation)
	}

	ext, err := export.Ext(format)
	if err != nil {
		return nil, err
	}

	items, err := s.items.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	content, err := export.Render(format, items, time.Now())
	if err != nil {
		return nil, err
	}

	digest, err := Digest(format, items)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ExportRequests.WithLabelValues(format).Inc()
	}

	// Durable blob first: the share link must work even if the fast
	// cache evicts the response. An existing blob is authoritative —
	// serving it keeps repeat requests byte-identical even though the
	// fresh render carries a newer manifest timestamp.
	key := blobstore.Key(digest, ext)
	exists, err := s.blobs.Exists(key)
	if err != nil {
		return nil, err
	}
	if exists {
		stored, err := s.blobs.Get(key)
		if err != nil {
			return nil, err
		}
		content = string(stored)
	} else {
		if err := s.blobs.Put(key, []byte(content)); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.BlobWrites.Inc()
		}
	}

	sharePath := "/share/" + digest
	filename := "stackhub-export." + ext
	cacheKey := "export:" + digest

	if cached, ok := s.cache.Get(ctx, cacheKey); ok {
		if s.metrics != nil {
			s.metrics.ExportCacheHits.Inc()
		}
		return &ExportResult{
			Content:   cached.Content,
			Digest:    digest,
			SharePath: sharePath,
			Filename:  filename,
			Headers:   cached.Headers,
			FromCache: true,
		}, nil
	}

	headers := map[string]string{
		"Content-Type":        "text/plain; charset=utf-8",
		"X-Export-Hash":       digest,
		"X-Share-Url":         sharePath,
		"Content-Disposition": `attachment; filename=` + filename,
	}
	s.cache.Set(ctx, cacheKey, &CachedResponse{Content: content, Headers: headers})

	log.Printf("📄 [EXPORT] Rendered %s bundle of %d items (%d bytes, digest %s)",
		format, len(items), len(content), shortDigest(digest))
	logging.WithExport(format, digest).Debug("artifact stored",
		"items", len(items), "bytes", len(content))

	return &ExportResult{
		Content:   content,
		Digest:    digest,
		SharePath: sharePath,
		Filename:  filename,
		Headers:   headers,
	}, nil
}

// Share retrieves a previously stored artifact by digest alone, probing
// every known extension.
func (s *ExportService) Share(ctx context.Context, digest string) (*ExportResult, error) {
	if !validDigest(digest) {
		return nil, fmt.Errorf("%w: export %q", models.ErrNotFound, digest)
	}
	for _, ext := range export.Extensions() {
		data, err := s.blobs.Get(blobstore.Key(digest, ext))
		if err == nil {
			return &ExportResult{
				Content:   string(data),
				Digest:    digest,
				SharePath: "/share/" + digest,
				Filename:  "stackhub-export." + ext,
				Headers: map[string]string{
					"Content-Type":  "text/plain; charset=utf-8",
					"X-Export-Hash": digest,
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: export %q", models.ErrNotFound, digest)
}

// Digest computes the content digest for a selection: SHA-256 over the
// canonical JSON of {format, items} with items sorted by id.
func Digest(format string, items []models.Item) (string, error) {
	canonical := make([]models.Item, len(items))
	copy(canonical, items)
	sort.Slice(canonical, func(i, j int) bool { return canonical[i].ID < canonical[j].ID })

	payload, err := json.Marshal(struct {
		Format string        `json:"format"`
		Items  []models.Item `json:"items"`
	}{Format: format, Items: canonical})
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize bundle: %w", err)
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// validDigest reports whether s is a full lowercase hex SHA-256 digest.
// Share keys come straight from the URL and never reach the filesystem
// in any other shape.
func validDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
