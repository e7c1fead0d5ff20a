package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dmmulroy/opensrc-mcp/internal/chunk"
	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

func init() {
	// Registers the vec0 extension against every sqlite3 connection opened
	// by this process, mirroring the package's documented Auto() usage.
	sqlite_vec.Auto()
}

// Store is the interface operations of §4.1 of the specification, grounded
// on the teacher's internal/store.MetadataStore/VectorStore method shape
// but narrowed to the single-table chunks+vec0 design this port uses.
type Store interface {
	Init(ctx context.Context) error
	InsertBatch(ctx context.Context, source string, chunks []chunk.CodeChunk, embeddings [][]float32) error
	Finalize(ctx context.Context) error
	MarkIndexed(ctx context.Context, source string) error
	IsIndexed(ctx context.Context, source string) (bool, error)
	ListIndexed(ctx context.Context) ([]string, error)
	DeleteSource(ctx context.Context, source string) error
	Scan(ctx context.Context, query []float32, topK int, sourceFilter []string) ([]ScanResult, error)
	Close() error
}

// SQLiteStore implements Store on top of mattn/go-sqlite3 (cgo) with the
// sqlite-vec extension, WAL mode, and a 5s busy timeout, per §4.1. All
// mutating calls serialize behind mu — see the Open-Question decision in
// DESIGN.md on why this replaces per-connection write concurrency.
type SQLiteStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// New returns a store backed by the database file at path. Init must be
// called before any other method.
func New(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// NewInMemory returns a store backed by a private in-memory database, for
// tests that don't want filesystem state.
func NewInMemory() *SQLiteStore {
	return &SQLiteStore{path: ":memory:"}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if s.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.Init", err)
		}
	}

	dsn := s.path
	if dsn != ":memory:" {
		dsn += "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.Init", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "SELECT vec_version()"); err != nil {
		_ = db.Close()
		return opensrcerr.Wrap(opensrcerr.KindVectorExtensionMissing, "vectorstore.Init", err)
	}

	for _, stmt := range schemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.Init", err)
		}
	}

	s.db = db
	return nil
}

func schemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			file TEXT NOT NULL,
			identifier TEXT NOT NULL,
			kind TEXT NOT NULL,
			parent TEXT NOT NULL DEFAULT '',
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			content TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
			chunk_id INTEGER PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		)`, Dimensions),
		// Shadow int8 quantization built by Finalize; kept in SQLite itself
		// (rather than an in-process cache) so it survives a process
		// restart. Scan does not read this table; it queries vec_chunks.
		`CREATE TABLE IF NOT EXISTS chunks_quantized (
			chunk_id INTEGER PRIMARY KEY,
			embedding BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS indexed_sources (
			name TEXT PRIMARY KEY,
			indexed_at TIMESTAMP NOT NULL
		)`,
	}
}

func (s *SQLiteStore) InsertBatch(ctx context.Context, source string, chunks []chunk.CodeChunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return opensrcerr.New(opensrcerr.KindInvalidSpec, "vectorstore.InsertBatch",
			fmt.Sprintf("chunk/embedding length mismatch: %d vs %d", len(chunks), len(embeddings)))
	}
	for _, e := range embeddings {
		if len(e) != Dimensions {
			return opensrcerr.New(opensrcerr.KindInvalidSpec, "vectorstore.InsertBatch",
				fmt.Sprintf("embedding has %d components, want %d", len(e), Dimensions))
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.InsertBatch", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertChunk, err := tx.PrepareContext(ctx, `INSERT INTO chunks
		(source, file, identifier, kind, parent, start_line, end_line, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.InsertBatch", err)
	}
	defer insertChunk.Close()

	insertVec, err := tx.PrepareContext(ctx, `INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)`)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.InsertBatch", err)
	}
	defer insertVec.Close()

	for i, c := range chunks {
		res, err := insertChunk.ExecContext(ctx, source, c.File, c.Identifier, string(c.Kind), c.Parent, c.StartLine, c.EndLine, c.Content)
		if err != nil {
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.InsertBatch", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.InsertBatch", err)
		}

		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.InsertBatch", err)
		}
		if _, err := insertVec.ExecContext(ctx, id, blob); err != nil {
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.InsertBatch", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.InsertBatch", err)
	}
	return nil
}

// Finalize runs quantize (rebuild the int8 shadow from every row currently
// in vec_chunks) then quantize_preload (force its pages resident). Expensive
// by design — callers must invoke it once per source at the end of
// ingestion, never per batch.
func (s *SQLiteStore) Finalize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks_quantized`); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.Finalize", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks_quantized (chunk_id, embedding)
		SELECT chunk_id, vec_quantize_int8(embedding, 'unit') FROM vec_chunks
	`); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.Finalize", err)
	}
	// quantize_preload: read the shadow table back once after the rebuild.
	if _, err := s.db.ExecContext(ctx, `SELECT COUNT(*) FROM chunks_quantized`); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.Finalize", err)
	}
	return nil
}

func (s *SQLiteStore) MarkIndexed(ctx context.Context, source string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO indexed_sources (name, indexed_at) VALUES (?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET indexed_at = excluded.indexed_at
	`, source); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.MarkIndexed", err)
	}
	return nil
}

func (s *SQLiteStore) IsIndexed(ctx context.Context, source string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM indexed_sources WHERE name = ?`, source).Scan(&count); err != nil {
		return false, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.IsIndexed", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) ListIndexed(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM indexed_sources ORDER BY name`)
	if err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.ListIndexed", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.ListIndexed", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.ListIndexed", err)
	}
	return names, nil
}

// DeleteSource removes every chunk row (and its vector + quantized shadow)
// belonging to source, plus its indexed_sources entry. The quantized shadow
// for surviving sources is left alone — stale-but-correct, per §4.1.
func (s *SQLiteStore) DeleteSource(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.DeleteSource", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE source = ?`, source)
	if err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.DeleteSource", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.DeleteSource", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.DeleteSource", err)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_chunks WHERE chunk_id = ?`, id); err != nil {
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.DeleteSource", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_quantized WHERE chunk_id = ?`, id); err != nil {
			return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.DeleteSource", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.DeleteSource", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM indexed_sources WHERE name = ?`, source); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.DeleteSource", err)
	}

	if err := tx.Commit(); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.DeleteSource", err)
	}
	return nil
}

// Scan returns up to topK rows nearest query by cosine distance. When
// sourceFilter is non-empty it requests 2*topK candidates from vec0 first,
// applies the filter, then truncates. Candidates come from the float
// vectors in vec_chunks; the int8 shadow built by Finalize is not consulted.
func (s *SQLiteStore) Scan(ctx context.Context, query []float32, topK int, sourceFilter []string) ([]ScanResult, error) {
	if len(query) != Dimensions {
		return nil, opensrcerr.New(opensrcerr.KindInvalidSpec, "vectorstore.Scan",
			fmt.Sprintf("query vector has %d components, want %d", len(query), Dimensions))
	}
	if topK <= 0 {
		return nil, nil
	}

	k := topK
	if len(sourceFilter) > 0 {
		k = topK * 2
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.Scan", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, distance
		FROM vec_chunks
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance, chunk_id
	`, blob, k)
	if err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.Scan", err)
	}
	defer rows.Close()

	type candidate struct {
		id       int64
		distance float32
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.distance); err != nil {
			return nil, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.Scan", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.Scan", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	allowed := make(map[string]struct{}, len(sourceFilter))
	for _, name := range sourceFilter {
		allowed[name] = struct{}{}
	}

	results := make([]ScanResult, 0, topK)
	for _, c := range candidates {
		if len(results) == topK {
			break
		}
		entry, ok, err := s.loadEntry(ctx, c.id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if len(sourceFilter) > 0 {
			if _, match := allowed[entry.Source]; !match {
				continue
			}
		}
		results = append(results, ScanResult{Entry: entry, Distance: c.distance})
	}
	return results, nil
}

func (s *SQLiteStore) loadEntry(ctx context.Context, id int64) (IndexedEntry, bool, error) {
	var e IndexedEntry
	var kind string
	e.ID = id
	row := s.db.QueryRowContext(ctx, `
		SELECT source, file, identifier, kind, parent, start_line, end_line, content
		FROM chunks WHERE id = ?
	`, id)
	if err := row.Scan(&e.Source, &e.File, &e.Identifier, &kind, &e.Parent, &e.StartLine, &e.EndLine, &e.Content); err != nil {
		if err == sql.ErrNoRows {
			return IndexedEntry{}, false, nil
		}
		return IndexedEntry{}, false, opensrcerr.Wrap(opensrcerr.KindDatabaseError, "vectorstore.loadEntry", err)
	}
	e.Kind = chunk.Kind(kind)
	return e, true, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
