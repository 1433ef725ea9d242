package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"AgriPolicy/internal/rag/schema"
)

// ErrSnapshotCorrupt reports a persisted snapshot whose manifest
// disagrees with its stored chunks. There is no partial repair: the
// caller rebuilds from source documents.
var ErrSnapshotCorrupt = errors.New("index snapshot is corrupt")

// ErrNoSnapshot reports that no snapshot has been persisted yet.
var ErrNoSnapshot = errors.New("no index snapshot found")

// Store persists index snapshots in a SQLite database. Each Save
// replaces the previous generation in one transaction, so a reader
// never observes a half-written snapshot.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the snapshot database at path.
func NewStore(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot initialize snapshot schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS manifest (
			generation  TEXT PRIMARY KEY,
			embedder    TEXT NOT NULL,
			dimension   INTEGER NOT NULL,
			chunk_count INTEGER NOT NULL,
			built_at    DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS chunks (
			id           TEXT NOT NULL,
			generation   TEXT NOT NULL,
			document_id  TEXT NOT NULL,
			content      TEXT NOT NULL,
			token_count  INTEGER NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset   INTEGER NOT NULL,
			embedding    BLOB NOT NULL,
			metadata     TEXT NOT NULL,
			PRIMARY KEY (id, generation)
		)`,
	}

	for _, tableSQL := range tables {
		if _, err := s.db.Exec(tableSQL); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists the snapshot, replacing any previous generation. The
// delete and the inserts commit together or not at all.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM manifest`); err != nil {
		return fmt.Errorf("cannot clear previous manifest: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("cannot clear previous chunks: %w", err)
	}

	m := snap.Manifest
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO manifest (generation, embedder, dimension, chunk_count, built_at) VALUES (?, ?, ?, ?, ?)`,
		m.Generation, m.Embedder, m.Dimension, m.ChunkCount, m.BuiltAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("cannot insert manifest: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, generation, document_id, content, token_count, start_offset, end_offset, embedding, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cannot prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range snap.chunks {
		md, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("cannot encode metadata for chunk %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, m.Generation, c.DocumentID, c.Text, c.TokenCount,
			c.StartOffset, c.EndOffset, encodeVector(c.Embedding), string(md),
		); err != nil {
			return fmt.Errorf("cannot insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit snapshot: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot and verifies it against its
// manifest. Count or dimension disagreement yields ErrSnapshotCorrupt.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	var row struct {
		Generation string `db:"generation"`
		Embedder   string `db:"embedder"`
		Dimension  int    `db:"dimension"`
		ChunkCount int    `db:"chunk_count"`
		BuiltAt    string `db:"built_at"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT generation, embedder, dimension, chunk_count, built_at FROM manifest LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest: %w", err)
	}

	builtAt, err := time.Parse(time.RFC3339Nano, row.BuiltAt)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable build timestamp", ErrSnapshotCorrupt)
	}
	manifest := Manifest{
		Generation: row.Generation,
		Embedder:   row.Embedder,
		Dimension:  row.Dimension,
		ChunkCount: row.ChunkCount,
		BuiltAt:    builtAt,
	}

	type chunkRow struct {
		ID          string `db:"id"`
		DocumentID  string `db:"document_id"`
		Content     string `db:"content"`
		TokenCount  int    `db:"token_count"`
		StartOffset int    `db:"start_offset"`
		EndOffset   int    `db:"end_offset"`
		Embedding   []byte `db:"embedding"`
		Metadata    string `db:"metadata"`
	}
	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, document_id, content, token_count, start_offset, end_offset, embedding, metadata
		 FROM chunks WHERE generation = ?`, manifest.Generation); err != nil {
		return nil, fmt.Errorf("cannot read chunks: %w", err)
	}

	if len(rows) != manifest.ChunkCount {
		return nil, fmt.Errorf("%w: manifest says %d chunks, found %d",
			ErrSnapshotCorrupt, manifest.ChunkCount, len(rows))
	}

	chunks := make([]*schema.Chunk, 0, len(rows))
	for _, r := range rows {
		vec, err := decodeVector(r.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %s: %v", ErrSnapshotCorrupt, r.ID, err)
		}
		if len(vec) != manifest.Dimension {
			return nil, fmt.Errorf("%w: chunk %s has dimension %d, manifest says %d",
				ErrSnapshotCorrupt, r.ID, len(vec), manifest.Dimension)
		}
		var md map[string]interface{}
		if err := json.Unmarshal([]byte(r.Metadata), &md); err != nil {
			return nil, fmt.Errorf("%w: chunk %s has unreadable metadata", ErrSnapshotCorrupt, r.ID)
		}
		chunks = append(chunks, &schema.Chunk{
			ID:          r.ID,
			DocumentID:  r.DocumentID,
			Text:        r.Content,
			TokenCount:  r.TokenCount,
			StartOffset: r.StartOffset,
			EndOffset:   r.EndOffset,
			Embedding:   vec,
			Metadata:    md,
		})
	}

	return NewSnapshot(manifest, chunks), nil
}

// encodeVector packs a float32 vector as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
