package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// errDocumentNotFound is mapped to a domain sentinel by each repository.
var errDocumentNotFound = errors.New("document not found")

// querier is the subset of pgxpool.Pool the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// document is one row of the documents table.
type document struct {
	ID        string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// documents addresses one collection of the documents table.
type documents struct {
	db         querier
	collection string
}

const getDocumentSQL = `
SELECT id, data, created_at, updated_at
FROM documents
WHERE collection = $1 AND id = $2`

func (d documents) get(ctx context.Context, id string) (*document, error) {
	var doc document
	err := d.db.QueryRow(ctx, getDocumentSQL, d.collection, id).Scan(&doc.ID, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", d.collection, id, err)
	}
	return &doc, nil
}

const createDocumentSQL = `
INSERT INTO documents (collection, id, data)
VALUES ($1, $2, $3)
RETURNING created_at`

// create inserts a new document and returns the server-assigned creation time.
func (d documents) create(ctx context.Context, id string, data any) (time.Time, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to encode %s/%s: %w", d.collection, id, err)
	}

	var createdAt time.Time
	if err := d.db.QueryRow(ctx, createDocumentSQL, d.collection, id, raw).Scan(&createdAt); err != nil {
		return time.Time{}, fmt.Errorf("failed to create %s/%s: %w", d.collection, id, err)
	}
	return createdAt, nil
}

// mergeDocumentSQL creates the document or shallow-merges the given fields
// into it. Fields not named in $3 are kept.
const mergeDocumentSQL = `
INSERT INTO documents (collection, id, data)
VALUES ($1, $2, $3)
ON CONFLICT (collection, id)
DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`

func (d documents) merge(ctx context.Context, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", d.collection, id, err)
	}

	if _, err := d.db.Exec(ctx, mergeDocumentSQL, d.collection, id, raw); err != nil {
		return fmt.Errorf("failed to merge %s/%s: %w", d.collection, id, err)
	}
	return nil
}

const listDocumentsSQL = `
SELECT id, data, created_at, updated_at
FROM documents
WHERE collection = $1
ORDER BY created_at DESC, id`

// list returns the whole collection, newest first.
func (d documents) list(ctx context.Context) ([]document, error) {
	rows, err := d.db.Query(ctx, listDocumentsSQL, d.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.collection, err)
	}

	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (document, error) {
		var doc document
		err := row.Scan(&doc.ID, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt)
		return doc, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", d.collection, err)
	}
	return docs, nil
}

const deleteDocumentSQL = `DELETE FROM documents WHERE collection = $1 AND id = $2`

func (d documents) delete(ctx context.Context, id string) error {
	tag, err := d.db.Exec(ctx, deleteDocumentSQL, d.collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", d.collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return errDocumentNotFound
	}
	return nil
}
