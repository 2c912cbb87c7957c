package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// columnAliases maps record fields to the header names catalogs use for
// them. The first alias present in the header wins.
var columnAliases = map[string][]string{
	"uid":         {"uid", "id", "record_id", "document_id"},
	"title":       {"title", "publication_title", "document_title"},
	"authors":     {"authors", "author_list"},
	"year":        {"year", "publication_year"},
	"doi":         {"doi"},
	"url":         {"url", "link"},
	"mission":     {"mission", "experiment_mission"},
	"organism":    {"organism", "species", "subject"},
	"environment": {"environment", "condition"},
	"abstract":    {"abstract", "summary"},
	"keywords":    {"keywords", "tags"},
}

// matchColumns resolves each known field to a header index, or -1 when no
// alias matches.
func matchColumns(header []string) map[string]int {
	lower := make(map[string]int, len(header))
	for i, h := range header {
		lower[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cols := make(map[string]int, len(columnAliases))
	for field, aliases := range columnAliases {
		cols[field] = -1
		for _, alias := range aliases {
			if i, ok := lower[alias]; ok {
				cols[field] = i
				break
			}
		}
	}
	return cols
}

// LoadCatalogCSV loads publication records from a CSV catalog. Rows without
// a title are skipped and reported in the batch's Issues.
func LoadCatalogCSV(path, sourceName string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading catalog CSV: %w", err)
	}
	return rowsToBatch(rows, path, sourceName)
}

// LoadCatalogXLSX loads publication records from the first sheet of an XLSX
// catalog.
func LoadCatalogXLSX(path, sourceName string) (*Batch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in catalog: %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading catalog sheet %q: %w", sheets[0], err)
	}
	return rowsToBatch(rows, path, sourceName)
}

func rowsToBatch(rows [][]string, path, sourceName string) (*Batch, error) {
	if sourceName == "" {
		sourceName = "catalog"
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty catalog: %s", path)
	}

	cols := matchColumns(rows[0])
	if cols["title"] == -1 {
		return nil, fmt.Errorf("catalog %s has no recognizable title column", path)
	}

	batch := &Batch{SourceName: sourceName, RawPath: path}
	for idx, row := range rows[1:] {
		cell := func(field string) string {
			i := cols[field]
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		title := cell("title")
		if title == "" {
			batch.Issues = append(batch.Issues, fmt.Sprintf("row %d missing title; skipped", idx))
			continue
		}

		uid := cell("uid")
		if uid == "" {
			uid = fmt.Sprintf("%s_%04d", sourceName, idx)
		}

		rec := PublicationRecord{
			UID:         uid,
			Title:       title,
			Authors:     splitList(cell("authors"), ",", ";"),
			DOI:         cell("doi"),
			URL:         cell("url"),
			Mission:     cell("mission"),
			Organism:    cell("organism"),
			Environment: cell("environment"),
			Abstract:    cell("abstract"),
			Keywords:    splitList(cell("keywords"), ";"),
			Source:      sourceName,
		}
		if y := cell("year"); y != "" {
			n, err := strconv.Atoi(y)
			if err != nil {
				batch.Issues = append(batch.Issues, fmt.Sprintf("row %d bad year %q", idx, y))
			} else {
				rec.Year = n
			}
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

// splitList splits a delimited cell value, trimming entries and dropping
// empties. Later separators are first rewritten to the primary one.
func splitList(s string, primary string, extra ...string) []string {
	if s == "" {
		return nil
	}
	for _, sep := range extra {
		s = strings.ReplaceAll(s, sep, primary)
	}
	var out []string
	for _, part := range strings.Split(s, primary) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
