// Package vecindex maintains the semantic-search vector index. Vectors
// live in the embeddings table keyed by item id, so an upsert for an
// existing id overwrites the prior vector (idempotent by construction —
// at-least-once delivery from the queue is safe). Queries rank by
// cosine similarity in process.
package vecindex

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"stackhub/internal/database"
	"stackhub/internal/embedding"
	"stackhub/internal/models"
)

// Record is one indexed entry: the item's vector plus denormalized
// metadata for result hydration.
type Record struct {
	ID       string
	Vector   []float32
	Name     string
	Category string
}

// Match is a query result, most similar first.
type Match struct {
	ID         string
	Name       string
	Category   string
	Similarity float64
}

// Index is the vector index backed by the embeddings table.
type Index struct {
	db *database.DB
}

// New creates an index over the shared database.
func New(db *database.DB) *Index {
	return &Index{db: db}
}

// Upsert writes one record; an existing id is overwritten.
func (ix *Index) Upsert(ctx context.Context, rec Record) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (id, vector, dims, name, category)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, encodeVector(rec.Vector), len(rec.Vector), rec.Name, rec.Category)
	if err != nil {
		return fmt.Errorf("%w: vector upsert for %s: %v", models.ErrUpstream, rec.ID, err)
	}
	return nil
}

// UpsertBatch writes records in one transaction. Order across records is
// irrelevant; last write per id wins.
func (ix *Index) UpsertBatch(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin vector batch: %v", models.ErrUpstream, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO embeddings (id, vector, dims, name, category)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare vector batch: %v", models.ErrUpstream, err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, rec.ID, encodeVector(rec.Vector), len(rec.Vector), rec.Name, rec.Category); err != nil {
			return fmt.Errorf("%w: vector upsert for %s: %v", models.ErrUpstream, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit vector batch: %v", models.ErrUpstream, err)
	}
	return nil
}

// Query returns the topK nearest neighbors of the query vector.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT id, vector, name, category FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %v", models.ErrUpstream, err)
	}
	defer rows.Close()

	var ids []string
	var names, categories []string
	var corpus [][]float32
	for rows.Next() {
		var id, name, category string
		var blob []byte
		if err := rows.Scan(&id, &blob, &name, &category); err != nil {
			return nil, fmt.Errorf("%w: scan embedding: %v", models.ErrUpstream, err)
		}
		ids = append(ids, id)
		names = append(names, name)
		categories = append(categories, category)
		corpus = append(corpus, decodeVector(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate embeddings: %v", models.ErrUpstream, err)
	}

	ranked := embedding.FindTopK(vector, corpus, topK)
	matches := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		matches = append(matches, Match{
			ID:         ids[r.Index],
			Name:       names[r.Index],
			Category:   categories[r.Index],
			Similarity: r.Similarity,
		})
	}
	return matches, nil
}

// Count returns the number of indexed entries.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count embeddings: %v", models.ErrUpstream, err)
	}
	return n, nil
}

// encodeVector packs float32s little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
