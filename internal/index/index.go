// Package index projects a crate graph into an in-memory SQLite database
// for listing, inspection and lineage queries. The manifest stays the
// source of truth; an Index is built from a graph snapshot and discarded.
package index

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/crates/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// maxLineageDepth bounds lineage traversal on cyclic graphs.
const maxLineageDepth = 64

// Index is a queryable snapshot of a graph.
type Index struct {
	db *sql.DB
}

// Row is one entity as listed.
type Row struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	ContentURL  string `json:"contentUrl,omitempty"`
	Description string `json:"description,omitempty"`
}

// Edge is a relationship between two entities. Name is the name of the
// entity at the other end, empty when it is not in the graph.
type Edge struct {
	Relation string `json:"relation"`
	From     string `json:"from"`
	To       string `json:"to"`
	Name     string `json:"name,omitempty"`
}

// Detail is one entity with its edges.
type Detail struct {
	Row
	Body     json.RawMessage `json:"entity"`
	Outgoing []Edge          `json:"outgoing"`
	Incoming []Edge          `json:"incoming"`
}

// Step is an entity reached by a lineage query.
type Step struct {
	Row
	Depth int `json:"depth"`
}

// Direction selects which side of the provenance chain Lineage follows.
type Direction int

const (
	// Upstream follows inputs: sources, software and computations an entity came from.
	Upstream Direction = iota
	// Downstream follows outputs: everything produced from an entity.
	Downstream
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Kind    types.Kind
	Keyword string
	// Text matches name or description, case-insensitively.
	Text string
}

// Build loads g into a new in-memory database.
func Build(ctx context.Context, g *types.Graph) (*Index, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}
	if err := load(ctx, db, g); err != nil {
		db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

// Close releases the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func load(ctx context.Context, db *sql.DB, g *types.Graph) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning index load: %w", err)
	}
	defer tx.Rollback()

	insertEntity, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO entities
		(entity_id, position, kind, name, content_url, description, body) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entity insert: %w", err)
	}
	defer insertEntity.Close()

	insertKeyword, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO keywords (entity_id, keyword) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing keyword insert: %w", err)
	}
	defer insertKeyword.Close()

	insertEdge, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO edges (relation, from_id, to_id, ordinal) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer insertEdge.Close()

	for pos, e := range g.Entities {
		if e.ID == "" {
			continue
		}
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding %q: %w", e.ID, err)
		}
		if _, err := insertEntity.ExecContext(ctx,
			e.ID, pos, e.Kind().String(), e.Name, e.ContentURL(), e.String(types.PropDescription), string(body),
		); err != nil {
			return fmt.Errorf("indexing %q: %w", e.ID, err)
		}
		for _, kw := range e.Strings(types.PropKeywords) {
			if _, err := insertKeyword.ExecContext(ctx, e.ID, strings.ToLower(strings.TrimSpace(kw))); err != nil {
				return fmt.Errorf("indexing keywords of %q: %w", e.ID, err)
			}
		}
		for _, rel := range types.Relations() {
			for i, target := range e.Targets(rel) {
				if _, err := insertEdge.ExecContext(ctx, string(rel), e.ID, target, i); err != nil {
					return fmt.Errorf("indexing %s of %q: %w", rel, e.ID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index load: %w", err)
	}
	return nil
}

// List returns the entities matching f in graph order.
func (ix *Index) List(ctx context.Context, f Filter) ([]Row, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != types.KindUnknown {
		where = append(where, "e.kind = ?")
		args = append(args, f.Kind.String())
	}
	if kw := strings.ToLower(strings.TrimSpace(f.Keyword)); kw != "" {
		where = append(where, "EXISTS (SELECT 1 FROM keywords k WHERE k.entity_id = e.entity_id AND k.keyword = ?)")
		args = append(args, kw)
	}
	if text := strings.TrimSpace(f.Text); text != "" {
		where = append(where, "(e.name LIKE ? ESCAPE '\\' OR e.description LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(text) + "%"
		args = append(args, pattern, pattern)
	}

	query := "SELECT e.entity_id, e.kind, e.name, e.content_url, e.description FROM entities e"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.position"

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Kind, &r.Name, &r.ContentURL, &r.Description); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Show returns one entity with its outgoing and incoming edges. It fails
// with ErrEntityNotFound for an unknown id.
func (ix *Index) Show(ctx context.Context, id string) (*Detail, error) {
	d := &Detail{}
	var body string
	err := ix.db.QueryRowContext(ctx,
		`SELECT entity_id, kind, name, content_url, description, body FROM entities WHERE entity_id = ?`, id,
	).Scan(&d.ID, &d.Kind, &d.Name, &d.ContentURL, &d.Description, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", types.ErrEntityNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", id, err)
	}
	d.Body = json.RawMessage(body)

	if d.Outgoing, err = ix.edges(ctx, `SELECT g.relation, g.from_id, g.to_id, COALESCE(e.name, '')
		FROM edges g LEFT JOIN entities e ON e.entity_id = g.to_id
		WHERE g.from_id = ? ORDER BY g.relation, g.ordinal`, id); err != nil {
		return nil, err
	}
	if d.Incoming, err = ix.edges(ctx, `SELECT g.relation, g.from_id, g.to_id, COALESCE(e.name, '')
		FROM edges g LEFT JOIN entities e ON e.entity_id = g.from_id
		WHERE g.to_id = ? ORDER BY g.relation, g.from_id`, id); err != nil {
		return nil, err
	}
	return d, nil
}

func (ix *Index) edges(ctx context.Context, query, id string) ([]Edge, error) {
	rows, err := ix.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("reading edges of %q: %w", id, err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.Relation, &e.From, &e.To, &e.Name); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const upstreamSQL = `WITH RECURSIVE walk(id, depth) AS (
    SELECT input_id, 1 FROM provenance WHERE output_id = ?
    UNION
    SELECT p.input_id, w.depth + 1 FROM provenance p JOIN walk w ON p.output_id = w.id WHERE w.depth < ?
)
SELECT w.id, COALESCE(e.kind, ''), COALESCE(e.name, ''), COALESCE(e.content_url, ''), COALESCE(e.description, ''), MIN(w.depth)
FROM walk w LEFT JOIN entities e ON e.entity_id = w.id
WHERE w.id <> ?
GROUP BY w.id
ORDER BY MIN(w.depth), w.id`

const downstreamSQL = `WITH RECURSIVE walk(id, depth) AS (
    SELECT output_id, 1 FROM provenance WHERE input_id = ?
    UNION
    SELECT p.output_id, w.depth + 1 FROM provenance p JOIN walk w ON p.input_id = w.id WHERE w.depth < ?
)
SELECT w.id, COALESCE(e.kind, ''), COALESCE(e.name, ''), COALESCE(e.content_url, ''), COALESCE(e.description, ''), MIN(w.depth)
FROM walk w LEFT JOIN entities e ON e.entity_id = w.id
WHERE w.id <> ?
GROUP BY w.id
ORDER BY MIN(w.depth), w.id`

// Lineage returns the entities reachable from id along provenance edges in
// direction dir, nearest first. It fails with ErrEntityNotFound for an
// unknown id.
func (ix *Index) Lineage(ctx context.Context, id string, dir Direction) ([]Step, error) {
	var exists int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE entity_id = ?`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("reading %q: %w", id, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %q", types.ErrEntityNotFound, id)
	}

	query := upstreamSQL
	if dir == Downstream {
		query = downstreamSQL
	}
	rows, err := ix.db.QueryContext(ctx, query, id, maxLineageDepth, id)
	if err != nil {
		return nil, fmt.Errorf("tracing lineage of %q: %w", id, err)
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		var s Step
		if err := rows.Scan(&s.ID, &s.Kind, &s.Name, &s.ContentURL, &s.Description, &s.Depth); err != nil {
			return nil, fmt.Errorf("scanning lineage step: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
