package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"stackhub/internal/database"
	"stackhub/internal/models"
	"stackhub/internal/queue"
)

// ItemService is the single source of truth for catalog items. Every
// upsert that changes persisted fields enqueues one indexing work unit
// carrying a snapshot of the searchable fields.
type ItemService struct {
	db    *database.DB
	queue queue.Queue // nil when the indexing pipeline is disabled
}

// NewItemService creates a new item service
func NewItemService(db *database.DB, q queue.Queue) *ItemService {
	return &ItemService{db: db, queue: q}
}

const itemColumns = `id, name, category, description, tags, ports, script_primary, script_alternate, extra_artifacts`

// Get returns one item by id.
func (s *ItemService) Get(ctx context.Context, id string) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %q", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item %q: %w", id, err)
	}
	return item, nil
}

// List returns all items ordered by id.
func (s *ItemService) List(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty catalog serializes as [] rather than null.
	items := make([]models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// Resolve looks up every id in order, failing on the first miss so an
// export can never produce a partial bundle.
func (s *ItemService) Resolve(ctx context.Context, ids []string) ([]models.Item, error) {
	items := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// Upsert writes the item and reports whether an indexing unit was
// enqueued. A field-identical re-submission is a no-op: nothing is
// rewritten and nothing is queued.
func (s *ItemService) Upsert(ctx context.Context, item *models.Item) (queued bool, err error) {
	if err := item.Validate(); err != nil {
		return false, err
	}

	existing, err := s.Get(ctx, item.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return false, err
	}
	if existing != nil && item.Equal(existing) {
		return false, nil
	}

	extraJSON := ""
	if len(item.ExtraArtifacts) > 0 {
		data, merr := json.Marshal(item.ExtraArtifacts)
		if merr != nil {
			return false, fmt.Errorf("failed to marshal extra artifacts: %w", merr)
		}
		extraJSON = string(data)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.Name, item.Category, item.Description,
		strings.Join(item.Tags, ","), joinPorts(item.Ports),
		item.ScriptPrimary, item.ScriptAlternate, extraJSON)
	if err != nil {
		return false, fmt.Errorf("%w: upsert item %q: %v", models.ErrStorage, item.ID, err)
	}

	if s.queue == nil {
		return false, nil
	}

	job := models.NewIndexJob(uuid.NewString(), item)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// The write itself succeeded; indexing will catch up on the next
		// change or a manual reindex.
		log.Printf("⚠️  [ITEMS] Failed to enqueue indexing for %s: %v", item.ID, err)
		return false, nil
	}
	return true, nil
}

// SeedFromFile loads items from a JSON file ({"items": [...]}) and
// upserts each one. Unchanged items are skipped by upsert semantics,
// so re-running a seed is harmless.
func (s *ItemService) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed struct {
		Items []models.Item `json:"items"`
	}
	if err := json.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	count := 0
	for i := range seed.Items {
		if _, err := s.Upsert(ctx, &seed.Items[i]); err != nil {
			return count, fmt.Errorf("failed to seed item %q: %w", seed.Items[i].ID, err)
		}
		count++
	}

	log.Printf("🌱 [ITEMS] Seeded %d items from %s", count, path)
	return count, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (*models.Item, error) {
	var item models.Item
	var tags, ports, extra string
	if err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Description,
		&tags, &ports, &item.ScriptPrimary, &item.ScriptAlternate, &extra); err != nil {
		return nil, err
	}

	item.Tags = splitNonEmpty(tags)
	item.Ports = parsePorts(ports)
	if extra != "" {
		if err := json.Unmarshal([]byte(extra), &item.ExtraArtifacts); err != nil {
			return nil, fmt.Errorf("corrupt extra_artifacts for %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinPorts(ports []int) string {
	if len(ports) == 0 {
		return ""
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

func parsePorts(s string) []int {
	if s == "" {
		return nil
	}
	var ports []int
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		ports = append(ports, n)
	}
	return ports
}
