package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Publication registry with hash-based change detection
CREATE TABLE IF NOT EXISTS publications (
    id INTEGER PRIMARY KEY,
    uid TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    authors JSON,
    year INTEGER,
    doi TEXT,
    url TEXT,
    mission TEXT,
    organism TEXT,
    environment TEXT,
    abstract TEXT,
    keywords JSON,
    source TEXT NOT NULL,
    content TEXT,
    content_hash TEXT NOT NULL,
    status TEXT DEFAULT 'pending',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Ordered text chunks per publication
CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY,
    publication_id INTEGER NOT NULL REFERENCES publications(id) ON DELETE CASCADE,
    section TEXT,
    content TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    char_start INTEGER NOT NULL,
    char_end INTEGER NOT NULL,
    content_hash TEXT NOT NULL
);

-- Vector embeddings via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Full-text search via FTS5
CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
    content,
    section,
    content='chunks',
    content_rowid='id',
    tokenize='porter unicode61'
);

-- FTS triggers to keep index in sync
CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
    INSERT INTO chunks_fts(rowid, content, section) VALUES (new.id, new.content, new.section);
END;
CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, content, section) VALUES ('delete', old.id, old.content, old.section);
END;
CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, content, section) VALUES ('delete', old.id, old.content, old.section);
    INSERT INTO chunks_fts(chunks_fts, rowid, content, section) VALUES (new.id, new.content, new.section);
END;

-- Aggregated graph: entities
CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY,
    entity_uid TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 0,
    properties JSON
);

-- Aggregated graph: relationships
CREATE TABLE IF NOT EXISTS relationships (
    id INTEGER PRIMARY KEY,
    source_uid TEXT NOT NULL,
    target_uid TEXT NOT NULL,
    relation_type TEXT NOT NULL,
    strength REAL NOT NULL DEFAULT 1.0,
    context TEXT,
    source_doc TEXT
);

-- One row per aggregation run, newest wins
CREATE TABLE IF NOT EXISTS graph_runs (
    id INTEGER PRIMARY KEY,
    total_documents INTEGER NOT NULL,
    total_entities INTEGER NOT NULL,
    total_relationships INTEGER NOT NULL,
    extracted_at TEXT NOT NULL,
    graph JSON NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_chunks_publication ON chunks(publication_id);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);
CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_uid);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_uid);
CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(relation_type);
CREATE INDEX IF NOT EXISTS idx_publications_hash ON publications(content_hash);
`, embeddingDim)
}
