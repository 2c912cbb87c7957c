// Command atlas ingests research articles and builds a knowledge graph.
//
// Usage:
//
//	go run -tags sqlite_fts5 ./cmd/atlas ingest --db ./atlas.db ./papers/*.pdf
//	go run -tags sqlite_fts5 ./cmd/atlas catalog --db ./atlas.db ./catalog.csv
//	go run -tags sqlite_fts5 ./cmd/atlas build --db ./atlas.db --out knowledge_graph.json
//	go run -tags sqlite_fts5 ./cmd/atlas list --db ./atlas.db
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	atlas "github.com/atlasbio/atlas"
	"github.com/atlasbio/atlas/graph"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	var (
		dbPath      = fs.String("db", "", "Path to SQLite database (default ~/.atlas/atlas.db)")
		out         = fs.String("out", "", "Output file for exported graph JSON (default stdout)")
		minFreq     = fs.Int("min-frequency", 0, "Minimum entity frequency (default 2)")
		minStrength = fs.Float64("min-strength", 0, "Minimum relationship strength (default 0.5)")
		concurrency = fs.Int("concurrency", 0, "Parallel document extractions (default 8)")
		force       = fs.Bool("force", false, "Re-ingest even when content is unchanged")
		verbose     = fs.Bool("v", false, "Enable debug logging")
	)
	fs.Parse(os.Args[2:])

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := atlas.DefaultConfig()
	cfg.DBPath = *dbPath
	if *minFreq > 0 {
		cfg.MinEntityFrequency = *minFreq
	}
	if *minStrength > 0 {
		cfg.MinRelationshipStrength = *minStrength
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}

	engine, err := atlas.New(cfg)
	if err != nil {
		fatal("starting engine: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()

	switch cmd {
	case "ingest":
		if fs.NArg() == 0 {
			fatal("ingest: at least one document path required")
		}
		var opts []atlas.IngestOption
		if *force {
			opts = append(opts, atlas.WithForceReload())
		}
		for _, path := range fs.Args() {
			id, err := engine.Ingest(ctx, path, opts...)
			if err != nil {
				fatal("ingesting %s: %v", path, err)
			}
			fmt.Printf("ingested %s (id %d)\n", path, id)
		}

	case "catalog":
		if fs.NArg() != 1 {
			fatal("catalog: exactly one catalog path required")
		}
		res, err := engine.IngestCatalog(ctx, fs.Arg(0))
		if err != nil {
			fatal("loading catalog: %v", err)
		}
		fmt.Printf("loaded %d records, skipped %d\n", res.Loaded, res.Skipped)
		for _, issue := range res.Issues {
			fmt.Fprintln(os.Stderr, "issue:", issue)
		}

	case "build":
		kg, err := engine.BuildGraph(ctx)
		if err != nil {
			fatal("building graph: %v", err)
		}
		summary := graph.Summarize(kg)
		fmt.Printf("graph built: %d entities, %d relationships from %d documents\n",
			summary.TotalEntities, summary.TotalRelations, summary.Metadata.TotalDocuments)
		if *out != "" {
			rels := kg.Relationships
			if rels == nil {
				rels = []graph.Relationship{}
			}
			doc := struct {
				Summary       *graph.Summary       `json:"summary"`
				Entities      []*graph.Entity      `json:"entities"`
				Relationships []graph.Relationship `json:"relationships"`
				Metadata      graph.Metadata       `json:"metadata"`
			}{summary, kg.EntityList(), rels, kg.Metadata}

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				fatal("encoding graph: %v", err)
			}
			if err := os.WriteFile(*out, data, 0644); err != nil {
				fatal("writing %s: %v", *out, err)
			}
			fmt.Printf("graph written to %s\n", *out)
		}

	case "export":
		data, err := engine.ExportGraph(ctx)
		if err != nil {
			fatal("exporting graph: %v", err)
		}
		if *out == "" {
			os.Stdout.Write(data)
			fmt.Println()
		} else if err := os.WriteFile(*out, data, 0644); err != nil {
			fatal("writing %s: %v", *out, err)
		}

	case "list":
		pubs, err := engine.ListPublications(ctx)
		if err != nil {
			fatal("listing publications: %v", err)
		}
		for _, p := range pubs {
			fmt.Printf("%s\t%s\t%s\n", p.UID, p.Status, p.Title)
		}

	case "delete":
		if fs.NArg() != 1 {
			fatal("delete: exactly one publication uid required")
		}
		if err := engine.Delete(ctx, fs.Arg(0)); err != nil {
			fatal("deleting %s: %v", fs.Arg(0), err)
		}
		fmt.Printf("deleted %s\n", fs.Arg(0))

	case "stats":
		stats, err := engine.Store().Stats(ctx)
		if err != nil {
			fatal("reading stats: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(stats)

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: atlas <command> [flags] [args]

commands:
  ingest   load one or more article files (txt, md, pdf)
  catalog  load a CSV or XLSX publication catalog
  build    extract entities and aggregate the knowledge graph
  export   print the latest graph as JSON
  list     list ingested publications
  delete   remove a publication by uid
  stats    print database row counts`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
