package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Publication represents a row in the publications table.
type Publication struct {
	ID          int64    `json:"id"`
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors,omitempty"`
	Year        int      `json:"year,omitempty"`
	DOI         string   `json:"doi,omitempty"`
	URL         string   `json:"url,omitempty"`
	Mission     string   `json:"mission,omitempty"`
	Organism    string   `json:"organism,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Abstract    string   `json:"abstract,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Source      string   `json:"source"`
	Content     string   `json:"-"`
	ContentHash string   `json:"content_hash"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// Chunk represents a row in the chunks table.
type Chunk struct {
	ID            int64  `json:"id"`
	PublicationID int64  `json:"publication_id"`
	Section       string `json:"section"`
	Content       string `json:"content"`
	ChunkIndex    int    `json:"chunk_index"`
	CharStart     int    `json:"char_start"`
	CharEnd       int    `json:"char_end"`
	ContentHash   string `json:"content_hash"`
}

// Entity represents a row in the entities table.
type Entity struct {
	ID         int64  `json:"id"`
	EntityUID  string `json:"entity_uid"`
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`
	Frequency  int    `json:"frequency"`
	Properties string `json:"properties,omitempty"`
}

// Relationship represents a row in the relationships table.
type Relationship struct {
	ID           int64   `json:"id"`
	SourceUID    string  `json:"source_uid"`
	TargetUID    string  `json:"target_uid"`
	RelationType string  `json:"relation_type"`
	Strength     float64 `json:"strength"`
	Context      string  `json:"context"`
	SourceDoc    string  `json:"source_doc"`
}

// GraphRun represents a row in the graph_runs table.
type GraphRun struct {
	ID                 int64  `json:"id"`
	TotalDocuments     int    `json:"total_documents"`
	TotalEntities      int    `json:"total_entities"`
	TotalRelationships int    `json:"total_relationships"`
	ExtractedAt        string `json:"extracted_at"`
	Graph              string `json:"graph"` // serialized knowledge graph JSON
}

// RetrievalResult holds a chunk with its retrieval score and publication info.
type RetrievalResult struct {
	ChunkID        int64   `json:"chunk_id"`
	PublicationID  int64   `json:"publication_id"`
	PublicationUID string  `json:"publication_uid"`
	Title          string  `json:"title"`
	Section        string  `json:"section"`
	Content        string  `json:"content"`
	Score          float64 `json:"score"`
}

// Store wraps the SQLite database for all atlas persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including sqlite-vec and FTS5 virtual tables.
func New(dbPath string, embeddingDim int) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Publication operations ---

// UpsertPublication inserts or updates a publication record keyed by uid.
// Returns the row ID.
func (s *Store) UpsertPublication(ctx context.Context, p Publication) (int64, error) {
	authors, err := json.Marshal(p.Authors)
	if err != nil {
		return 0, fmt.Errorf("encoding authors: %w", err)
	}
	keywords, err := json.Marshal(p.Keywords)
	if err != nil {
		return 0, fmt.Errorf("encoding keywords: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO publications (uid, title, authors, year, doi, url, mission,
			organism, environment, abstract, keywords, source, content, content_hash, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			year = excluded.year,
			doi = excluded.doi,
			url = excluded.url,
			mission = excluded.mission,
			organism = excluded.organism,
			environment = excluded.environment,
			abstract = excluded.abstract,
			keywords = excluded.keywords,
			source = excluded.source,
			content = excluded.content,
			content_hash = excluded.content_hash,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, p.UID, p.Title, string(authors), p.Year, p.DOI, p.URL, p.Mission,
		p.Organism, p.Environment, p.Abstract, string(keywords), p.Source,
		p.Content, p.ContentHash, p.Status)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	// If UPSERT did an UPDATE, LastInsertId may not reflect the existing row.
	if id == 0 {
		row := s.db.QueryRowContext(ctx, "SELECT id FROM publications WHERE uid = ?", p.UID)
		if err := row.Scan(&id); err != nil {
			return 0, err
		}
	}
	return id, nil
}

const publicationColumns = `id, uid, title, authors, year, doi, url, mission,
	organism, environment, abstract, keywords, source, content, content_hash,
	status, created_at, updated_at`

func scanPublication(scan func(...any) error) (*Publication, error) {
	p := &Publication{}
	var authors, keywords sql.NullString
	var year sql.NullInt64
	var doi, url, mission, organism, environment, abstract, content sql.NullString
	if err := scan(&p.ID, &p.UID, &p.Title, &authors, &year, &doi, &url,
		&mission, &organism, &environment, &abstract, &keywords, &p.Source,
		&content, &p.ContentHash, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Year = int(year.Int64)
	p.DOI = doi.String
	p.URL = url.String
	p.Mission = mission.String
	p.Organism = organism.String
	p.Environment = environment.String
	p.Abstract = abstract.String
	p.Content = content.String
	if authors.Valid {
		json.Unmarshal([]byte(authors.String), &p.Authors)
	}
	if keywords.Valid {
		json.Unmarshal([]byte(keywords.String), &p.Keywords)
	}
	return p, nil
}

// GetPublication retrieves a publication by its uid.
func (s *Store) GetPublication(ctx context.Context, uid string) (*Publication, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+publicationColumns+" FROM publications WHERE uid = ?", uid)
	return scanPublication(row.Scan)
}

// ListPublications returns all publications ordered by creation time.
func (s *Store) ListPublications(ctx context.Context) ([]Publication, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+publicationColumns+" FROM publications ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pubs []Publication
	for rows.Next() {
		p, err := scanPublication(rows.Scan)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, *p)
	}
	return pubs, rows.Err()
}

// UpdatePublicationStatus updates just the status field.
func (s *Store) UpdatePublicationStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE publications SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id)
	return err
}

// DeletePublication removes a publication and cascades to its chunks and
// embeddings.
func (s *Store) DeletePublication(ctx context.Context, uid string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		row := tx.QueryRowContext(ctx, "SELECT id FROM publications WHERE uid = ?", uid)
		if err := row.Scan(&id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_chunks WHERE chunk_id IN (
				SELECT id FROM chunks WHERE publication_id = ?
			)`, id); err != nil {
			return err
		}

		// Chunk deletion triggers clean up FTS.
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM chunks WHERE publication_id = ?", id); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, "DELETE FROM publications WHERE id = ?", id)
		return err
	})
}

// DeletePublicationChunks removes all chunks and embeddings for a publication
// but keeps the publication record itself.
func (s *Store) DeletePublicationChunks(ctx context.Context, pubID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_chunks WHERE chunk_id IN (
				SELECT id FROM chunks WHERE publication_id = ?
			)`, pubID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			"DELETE FROM chunks WHERE publication_id = ?", pubID)
		return err
	})
}

// --- Chunk operations ---

// InsertChunks inserts a batch of chunks and returns their IDs.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) ([]int64, error) {
	ids := make([]int64, len(chunks))

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (publication_id, section, content, chunk_index,
				char_start, char_end, content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, c := range chunks {
			hash := sha256.Sum256([]byte(c.Content))
			contentHash := hex.EncodeToString(hash[:])

			res, err := stmt.ExecContext(ctx,
				c.PublicationID, c.Section, c.Content, c.ChunkIndex,
				c.CharStart, c.CharEnd, contentHash)
			if err != nil {
				return err
			}
			ids[i], err = res.LastInsertId()
			if err != nil {
				return err
			}
		}
		return nil
	})

	return ids, err
}

// GetChunksByPublication returns a publication's chunks in document order.
func (s *Store) GetChunksByPublication(ctx context.Context, pubID int64) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, publication_id, section, content, chunk_index, char_start, char_end, content_hash
		FROM chunks WHERE publication_id = ? ORDER BY chunk_index
	`, pubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var section sql.NullString
		if err := rows.Scan(&c.ID, &c.PublicationID, &section, &c.Content,
			&c.ChunkIndex, &c.CharStart, &c.CharEnd, &c.ContentHash); err != nil {
			return nil, err
		}
		c.Section = section.String
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// --- Embedding operations ---

// InsertEmbedding stores a vector embedding for a chunk. Embeddings are
// computed by an external collaborator; the store only persists them.
func (s *Store) InsertEmbedding(ctx context.Context, chunkID int64, embedding []float32) error {
	if len(embedding) != s.embeddingDim {
		return fmt.Errorf("embedding dimension %d, want %d", len(embedding), s.embeddingDim)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)",
		chunkID, serializeFloat32(embedding))
	return err
}

// ChunkHasEmbedding reports whether a chunk already has a stored embedding.
func (s *Store) ChunkHasEmbedding(ctx context.Context, chunkID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vec_chunks WHERE chunk_id = ?", chunkID).Scan(&n)
	return n > 0, err
}

// VectorSearch performs a KNN search returning the top-k nearest chunks.
func (s *Store) VectorSearch(ctx context.Context, queryEmbedding []float32, k int) ([]RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance,
			c.content, c.section, c.publication_id,
			p.uid, p.title
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN publications p ON p.id = c.publication_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var distance float64
		var section sql.NullString
		if err := rows.Scan(&r.ChunkID, &distance,
			&r.Content, &section, &r.PublicationID,
			&r.PublicationUID, &r.Title); err != nil {
			return nil, err
		}
		r.Section = section.String
		// Convert distance to similarity score (1 - distance for cosine)
		r.Score = 1.0 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// FTSSearch performs a full-text search using FTS5 BM25 ranking.
func (s *Store) FTSSearch(ctx context.Context, query string, limit int) ([]RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.rowid, f.rank,
			c.content, c.section, c.publication_id,
			p.uid, p.title
		FROM chunks_fts f
		JOIN chunks c ON c.id = f.rowid
		JOIN publications p ON p.id = c.publication_id
		WHERE chunks_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var rank float64
		var section sql.NullString
		if err := rows.Scan(&r.ChunkID, &rank,
			&r.Content, &section, &r.PublicationID,
			&r.PublicationUID, &r.Title); err != nil {
			return nil, err
		}
		r.Section = section.String
		// FTS5 rank is negative (lower = better), convert to positive score
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Graph operations ---

// ReplaceGraph atomically swaps the stored aggregated graph for a new one.
// Aggregation always rebuilds from scratch, so the previous rows are cleared
// rather than merged.
func (s *Store) ReplaceGraph(ctx context.Context, entities []Entity, rels []Relationship) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM relationships"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM entities"); err != nil {
			return err
		}

		entStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO entities (entity_uid, name, entity_type, frequency, properties)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer entStmt.Close()

		for _, e := range entities {
			if _, err := entStmt.ExecContext(ctx,
				e.EntityUID, e.Name, e.EntityType, e.Frequency, e.Properties); err != nil {
				return err
			}
		}

		relStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO relationships (source_uid, target_uid, relation_type, strength, context, source_doc)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer relStmt.Close()

		for _, r := range rels {
			if _, err := relStmt.ExecContext(ctx,
				r.SourceUID, r.TargetUID, r.RelationType, r.Strength, r.Context, r.SourceDoc); err != nil {
				return err
			}
		}
		return nil
	})
}

// AllEntities returns every stored entity in insertion order.
func (s *Store) AllEntities(ctx context.Context) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_uid, name, entity_type, frequency, properties
		FROM entities ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		var props sql.NullString
		if err := rows.Scan(&e.ID, &e.EntityUID, &e.Name, &e.EntityType,
			&e.Frequency, &props); err != nil {
			return nil, err
		}
		e.Properties = props.String
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// AllRelationships returns every stored relationship in insertion order.
func (s *Store) AllRelationships(ctx context.Context) ([]Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_uid, target_uid, relation_type, strength, context, source_doc
		FROM relationships ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []Relationship
	for rows.Next() {
		var r Relationship
		var relCtx, sourceDoc sql.NullString
		if err := rows.Scan(&r.ID, &r.SourceUID, &r.TargetUID, &r.RelationType,
			&r.Strength, &relCtx, &sourceDoc); err != nil {
			return nil, err
		}
		r.Context = relCtx.String
		r.SourceDoc = sourceDoc.String
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// GetEntitiesByUIDs returns entities matching any of the given uids.
func (s *Store) GetEntitiesByUIDs(ctx context.Context, uids []string) ([]Entity, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	query := "SELECT id, entity_uid, name, entity_type, frequency, properties FROM entities WHERE entity_uid IN (?" +
		repeatPlaceholders(len(uids)-1) + ")"

	args := make([]any, len(uids))
	for i, u := range uids {
		args[i] = u
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		var props sql.NullString
		if err := rows.Scan(&e.ID, &e.EntityUID, &e.Name, &e.EntityType,
			&e.Frequency, &props); err != nil {
			return nil, err
		}
		e.Properties = props.String
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// SaveGraphRun records an aggregation run with its serialized graph.
func (s *Store) SaveGraphRun(ctx context.Context, run GraphRun) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO graph_runs (total_documents, total_entities, total_relationships, extracted_at, graph)
		VALUES (?, ?, ?, ?, ?)
	`, run.TotalDocuments, run.TotalEntities, run.TotalRelationships, run.ExtractedAt, run.Graph)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestGraphRun returns the most recent aggregation run, or sql.ErrNoRows
// when no graph has been built yet.
func (s *Store) LatestGraphRun(ctx context.Context) (*GraphRun, error) {
	run := &GraphRun{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, total_documents, total_entities, total_relationships, extracted_at, graph
		FROM graph_runs ORDER BY id DESC LIMIT 1
	`).Scan(&run.ID, &run.TotalDocuments, &run.TotalEntities,
		&run.TotalRelationships, &run.ExtractedAt, &run.Graph)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// --- Stats ---

// DBStats summarizes row counts across the main tables.
type DBStats struct {
	Publications  int `json:"publications"`
	Chunks        int `json:"chunks"`
	Embeddings    int `json:"embeddings"`
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`
}

// Stats returns row counts for the main tables.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"publications", &stats.Publications},
		{"chunks", &stats.Chunks},
		{"vec_chunks", &stats.Embeddings},
		{"entities", &stats.Entities},
		{"relationships", &stats.Relationships},
	} {
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+q.table).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.table, err)
		}
	}
	return stats, nil
}

// --- Helpers ---

// inTx runs fn inside a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func repeatPlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(", ?", n)
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
