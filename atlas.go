package atlas

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atlasbio/atlas/graph"
	"github.com/atlasbio/atlas/ingest"
	"github.com/atlasbio/atlas/store"
	"github.com/atlasbio/atlas/textproc"
)

// Engine is the main entry point for the Atlas pipeline: article ingestion,
// deterministic chunking, and pattern-based knowledge graph construction.
type Engine interface {
	// Ingest loads, chunks, and stores a document file. The publication uid
	// defaults to the file name without extension. Skips work when the
	// content hash is unchanged.
	Ingest(ctx context.Context, path string, opts ...IngestOption) (int64, error)

	// IngestText stores raw article text under the given record's metadata.
	IngestText(ctx context.Context, rec ingest.PublicationRecord, text string) (int64, error)

	// IngestCatalog loads a CSV or XLSX publication catalog and stores each
	// record, using the abstract as article text when present.
	IngestCatalog(ctx context.Context, path string) (*CatalogResult, error)

	// BuildGraph extracts entities and relationships from every ingested
	// publication and aggregates them into a knowledge graph. The result is
	// persisted and returned.
	BuildGraph(ctx context.Context) (*graph.KnowledgeGraph, error)

	// ExportGraph returns the latest persisted graph as JSON.
	ExportGraph(ctx context.Context) ([]byte, error)

	// ExportSchemaGraph re-extracts per-publication entities and returns the
	// typed publication-centric node/edge view.
	ExportSchemaGraph(ctx context.Context) (*graph.SchemaGraph, error)

	// ListPublications returns all ingested publications.
	ListPublications(ctx context.Context) ([]Publication, error)

	// Delete removes a publication and all associated data.
	Delete(ctx context.Context, uid string) error

	// Store returns the underlying store for diagnostic access and for
	// collaborators that supply chunk embeddings.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// Publication describes an ingested publication.
type Publication struct {
	ID          int64    `json:"id"`
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors,omitempty"`
	Year        int      `json:"year,omitempty"`
	DOI         string   `json:"doi,omitempty"`
	Mission     string   `json:"mission,omitempty"`
	Organism    string   `json:"organism,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Source      string   `json:"source"`
	ContentHash string   `json:"content_hash"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// CatalogResult reports the outcome of a catalog ingestion.
type CatalogResult struct {
	Loaded  int      `json:"loaded"`
	Skipped int      `json:"skipped"`
	Issues  []string `json:"issues,omitempty"`
}

// IngestOption configures ingestion behavior.
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	forceReload bool
	uid         string
	section     string
}

// WithForceReload forces re-chunking even if the content hash is unchanged.
func WithForceReload() IngestOption {
	return func(o *ingestOptions) { o.forceReload = true }
}

// WithUID overrides the uid derived from the file name.
func WithUID(uid string) IngestOption {
	return func(o *ingestOptions) { o.uid = uid }
}

// WithSection labels the ingested text with a section name.
func WithSection(section string) IngestOption {
	return func(o *ingestOptions) { o.section = section }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg        Config
	store      *store.Store
	loaders    *ingest.Registry
	chunker    *textproc.Chunker
	extractor  *graph.Extractor
	aggregator *graph.Aggregator
	closed     bool
}

// New creates a new Atlas engine with the given configuration.
func New(cfg Config) (Engine, error) {
	dbPath := cfg.resolveDBPath()

	// Apply defaults for zero values
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 768
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}

	chunker, err := textproc.New(textproc.Config{
		TargetChars:      cfg.TargetChars,
		OverlapSentences: cfg.OverlapSentences,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s, err := store.New(dbPath, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return &engine{
		cfg:       cfg,
		store:     s,
		loaders:   ingest.NewRegistry(),
		chunker:   chunker,
		extractor: graph.NewExtractor(nil, nil),
		aggregator: graph.NewAggregator(graph.AggregateConfig{
			MinEntityFrequency: cfg.MinEntityFrequency,
			MinStrength:        cfg.MinRelationshipStrength,
		}),
	}, nil
}

// Ingest loads a document file and runs it through chunking and storage.
func (e *engine) Ingest(ctx context.Context, path string, opts ...IngestOption) (int64, error) {
	if e.closed {
		return 0, ErrStoreClosed
	}
	options := &ingestOptions{}
	for _, o := range opts {
		o(options)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}

	filename := filepath.Base(absPath)
	uid := options.uid
	if uid == "" {
		uid = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	hash, err := fileHash(absPath)
	if err != nil {
		return 0, fmt.Errorf("hashing file: %w", err)
	}

	// Skip when the stored content hash matches.
	if !options.forceReload {
		existing, err := e.store.GetPublication(ctx, uid)
		if err == nil && existing.ContentHash == hash {
			return existing.ID, nil
		}
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(absPath), "."))
	loader, err := e.loaders.Get(format)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	slog.Info("ingest: loading document", "file", filename, "format", format, "uid", uid)
	loadStart := time.Now()

	doc, err := loader.Load(ctx, absPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLoadingFailed, err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return 0, fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}

	slog.Info("ingest: loading complete",
		"file", filename, "chars", len(doc.Text),
		"elapsed", time.Since(loadStart).Round(time.Millisecond))

	return e.ingestContent(ctx, ingest.PublicationRecord{
		UID:    uid,
		Title:  doc.Title,
		Source: "file",
	}, doc.Text, options.section, hash)
}

// IngestText stores raw article text under the given record.
func (e *engine) IngestText(ctx context.Context, rec ingest.PublicationRecord, text string) (int64, error) {
	if e.closed {
		return 0, ErrStoreClosed
	}
	if rec.UID == "" {
		return 0, fmt.Errorf("%w: record uid required", ErrInvalidConfig)
	}
	hash := sha256.Sum256([]byte(text))
	return e.ingestContent(ctx, rec, text, "", hex.EncodeToString(hash[:]))
}

// IngestCatalog loads a publication catalog and stores every record.
func (e *engine) IngestCatalog(ctx context.Context, path string) (*CatalogResult, error) {
	if e.closed {
		return nil, ErrStoreClosed
	}
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	var batch *ingest.Batch
	var err error
	switch format {
	case "csv":
		batch, err = ingest.LoadCatalogCSV(path, "")
	case "xlsx", "xls":
		batch, err = ingest.LoadCatalogXLSX(path, "")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	result := &CatalogResult{Issues: batch.Issues}
	for _, rec := range batch.Records {
		if _, err := e.IngestText(ctx, rec, rec.Abstract); err != nil {
			result.Skipped++
			result.Issues = append(result.Issues,
				fmt.Sprintf("record %s: %v", rec.UID, err))
			continue
		}
		result.Loaded++
	}

	slog.Info("ingest: catalog complete",
		"path", path, "loaded", result.Loaded, "skipped", result.Skipped)
	return result, nil
}

// ingestContent normalizes, chunks, and persists article text.
func (e *engine) ingestContent(ctx context.Context, rec ingest.PublicationRecord, text, section, hash string) (int64, error) {
	normalized := textproc.Normalize(text)

	pubID, err := e.store.UpsertPublication(ctx, store.Publication{
		UID:         rec.UID,
		Title:       rec.Title,
		Authors:     rec.Authors,
		Year:        rec.Year,
		DOI:         rec.DOI,
		URL:         rec.URL,
		Mission:     rec.Mission,
		Organism:    rec.Organism,
		Environment: rec.Environment,
		Abstract:    rec.Abstract,
		Keywords:    rec.Keywords,
		Source:      sourceOrDefault(rec.Source),
		Content:     normalized,
		ContentHash: hash,
		Status:      "processing",
	})
	if err != nil {
		return 0, fmt.Errorf("upserting publication: %w", err)
	}

	// Re-ingest replaces the previous chunk set.
	if err := e.store.DeletePublicationChunks(ctx, pubID); err != nil {
		return 0, fmt.Errorf("cleaning old chunks: %w", err)
	}

	chunkStart := time.Now()
	chunks := e.chunker.ChunkDocument(rec.UID, section, normalized)
	slog.Info("ingest: chunking complete",
		"uid", rec.UID, "chunks", len(chunks),
		"elapsed", time.Since(chunkStart).Round(time.Millisecond))

	if len(chunks) > 0 {
		rows := make([]store.Chunk, len(chunks))
		for i, c := range chunks {
			rows[i] = store.Chunk{
				PublicationID: pubID,
				Section:       c.Section,
				Content:       c.Text,
				ChunkIndex:    c.ChunkIndex,
				CharStart:     c.CharStart,
				CharEnd:       c.CharEnd,
			}
		}
		if _, err := e.store.InsertChunks(ctx, rows); err != nil {
			e.store.UpdatePublicationStatus(ctx, pubID, "error")
			return 0, fmt.Errorf("inserting chunks: %w", err)
		}
	}

	e.store.UpdatePublicationStatus(ctx, pubID, "ready")
	return pubID, nil
}

// BuildGraph runs extraction over every ingested publication and aggregates
// the results. Extraction is stateless per document, so documents are
// processed in parallel; aggregation then reduces the results sequentially
// in ingestion order so the output is independent of scheduling.
func (e *engine) BuildGraph(ctx context.Context) (*graph.KnowledgeGraph, error) {
	if e.closed {
		return nil, ErrStoreClosed
	}
	pubs, err := e.store.ListPublications(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing publications: %w", err)
	}
	if len(pubs) == 0 {
		return nil, ErrNoPublications
	}

	slog.Info("graph: extracting", "publications", len(pubs), "concurrency", e.cfg.Concurrency)
	start := time.Now()

	extractions := e.extractAll(ctx, pubs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kg := e.aggregator.Aggregate(extractions)

	slog.Info("graph: aggregation complete",
		"entities", kg.Metadata.TotalEntities,
		"relationships", kg.Metadata.TotalRelationships,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if err := e.persistGraph(ctx, kg); err != nil {
		return nil, fmt.Errorf("persisting graph: %w", err)
	}
	return kg, nil
}

// extractAll fans document extraction out over a bounded worker pool and
// returns per-document results in publication order.
func (e *engine) extractAll(ctx context.Context, pubs []store.Publication) []*graph.Extraction {
	extractions := make([]*graph.Extraction, len(pubs))
	sem := make(chan struct{}, e.cfg.Concurrency)
	done := make(chan int, len(pubs))

	for i := range pubs {
		go func(i int) {
			defer func() { done <- i }()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			extractions[i] = e.extractor.Extract(pubs[i].Content, pubs[i].UID)
		}(i)
	}
	for range pubs {
		<-done
	}

	// Cancelled workers leave nil slots; drop them.
	out := extractions[:0]
	for _, ext := range extractions {
		if ext != nil {
			out = append(out, ext)
		}
	}
	return out
}

// persistGraph replaces the stored entity and relationship rows and records
// the run with its serialized graph.
func (e *engine) persistGraph(ctx context.Context, kg *graph.KnowledgeGraph) error {
	entities := make([]store.Entity, 0, len(kg.Entities))
	for _, ent := range kg.EntityList() {
		props, err := json.Marshal(ent.Properties)
		if err != nil {
			return fmt.Errorf("encoding entity properties: %w", err)
		}
		entities = append(entities, store.Entity{
			EntityUID:  ent.ID,
			Name:       ent.Name,
			EntityType: ent.Type,
			Frequency:  ent.Frequency,
			Properties: string(props),
		})
	}

	rels := make([]store.Relationship, 0, len(kg.Relationships))
	for _, r := range kg.Relationships {
		rels = append(rels, store.Relationship{
			SourceUID:    r.Source,
			TargetUID:    r.Target,
			RelationType: r.RelationType,
			Strength:     r.Strength,
			Context:      r.Context,
			SourceDoc:    r.SourceDoc,
		})
	}

	if err := e.store.ReplaceGraph(ctx, entities, rels); err != nil {
		return err
	}

	data, err := json.Marshal(kg)
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	_, err = e.store.SaveGraphRun(ctx, store.GraphRun{
		TotalDocuments:     kg.Metadata.TotalDocuments,
		TotalEntities:      kg.Metadata.TotalEntities,
		TotalRelationships: kg.Metadata.TotalRelationships,
		ExtractedAt:        kg.Metadata.ExtractionTimestamp,
		Graph:              string(data),
	})
	return err
}

// ExportGraph returns the latest persisted graph as JSON.
func (e *engine) ExportGraph(ctx context.Context) ([]byte, error) {
	if e.closed {
		return nil, ErrStoreClosed
	}
	run, err := e.store.LatestGraphRun(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoGraph
	}
	if err != nil {
		return nil, fmt.Errorf("loading graph run: %w", err)
	}
	return []byte(run.Graph), nil
}

// ExportSchemaGraph builds the typed publication-centric node/edge view.
func (e *engine) ExportSchemaGraph(ctx context.Context) (*graph.SchemaGraph, error) {
	if e.closed {
		return nil, ErrStoreClosed
	}
	pubs, err := e.store.ListPublications(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing publications: %w", err)
	}
	if len(pubs) == 0 {
		return nil, ErrNoPublications
	}

	views := make([]graph.Publication, len(pubs))
	extractions := make(map[string]*graph.Extraction, len(pubs))
	for i, p := range pubs {
		views[i] = graph.Publication{
			UID:         p.UID,
			Title:       p.Title,
			Year:        p.Year,
			DOI:         p.DOI,
			Mission:     p.Mission,
			Organism:    p.Organism,
			Environment: p.Environment,
			Source:      p.Source,
		}
		extractions[p.UID] = e.extractor.Extract(p.Content, p.UID)
	}
	return graph.BuildSchemaGraph(views, extractions), nil
}

// ListPublications returns all ingested publications.
func (e *engine) ListPublications(ctx context.Context) ([]Publication, error) {
	if e.closed {
		return nil, ErrStoreClosed
	}
	pubs, err := e.store.ListPublications(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Publication, len(pubs))
	for i, p := range pubs {
		result[i] = Publication{
			ID:          p.ID,
			UID:         p.UID,
			Title:       p.Title,
			Authors:     p.Authors,
			Year:        p.Year,
			DOI:         p.DOI,
			Mission:     p.Mission,
			Organism:    p.Organism,
			Environment: p.Environment,
			Source:      p.Source,
			ContentHash: p.ContentHash,
			Status:      p.Status,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
	}
	return result, nil
}

// Delete removes a publication and all its associated data.
func (e *engine) Delete(ctx context.Context, uid string) error {
	if e.closed {
		return ErrStoreClosed
	}
	err := e.store.DeletePublication(ctx, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrPublicationNotFound, uid)
	}
	return err
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine. Further operations return ErrStoreClosed.
func (e *engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.store.Close()
}

func sourceOrDefault(source string) string {
	if source == "" {
		return "manual"
	}
	return source
}

// fileHash computes the SHA-256 hash of a file's content.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
