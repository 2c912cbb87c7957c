package ingest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}
	return path
}

func TestLoadCatalogCSV(t *testing.T) {
	path := writeCatalog(t, "catalog.csv",
		"ID,Publication_Title,Author_List,Year,DOI,Mission,Species,Condition,Summary,Tags\n"+
			"p-001,Bone loss in orbit,\"Smith, J; Lee, K\",2021,10.1000/xyz,ISS-64,mouse,microgravity,Bone density fell.,bone;microgravity\n"+
			"p-002,Muscle study,,2022,,,rat,,,\n")

	batch, err := LoadCatalogCSV(path, "nasa")
	if err != nil {
		t.Fatalf("LoadCatalogCSV: %v", err)
	}
	if len(batch.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(batch.Records))
	}

	rec := batch.Records[0]
	if rec.UID != "p-001" {
		t.Errorf("uid = %q, want p-001", rec.UID)
	}
	if rec.Title != "Bone loss in orbit" {
		t.Errorf("title = %q", rec.Title)
	}
	if want := []string{"Smith", "J", "Lee", "K"}; !reflect.DeepEqual(rec.Authors, want) {
		t.Errorf("authors = %v, want %v", rec.Authors, want)
	}
	if rec.Year != 2021 {
		t.Errorf("year = %d, want 2021", rec.Year)
	}
	if rec.Mission != "ISS-64" {
		t.Errorf("mission = %q, want ISS-64", rec.Mission)
	}
	if rec.Organism != "mouse" {
		t.Errorf("organism = %q, want mouse (via species alias)", rec.Organism)
	}
	if rec.Environment != "microgravity" {
		t.Errorf("environment = %q, want microgravity (via condition alias)", rec.Environment)
	}
	if rec.Abstract != "Bone density fell." {
		t.Errorf("abstract = %q", rec.Abstract)
	}
	if want := []string{"bone", "microgravity"}; !reflect.DeepEqual(rec.Keywords, want) {
		t.Errorf("keywords = %v, want %v", rec.Keywords, want)
	}
	if rec.Source != "nasa" {
		t.Errorf("source = %q, want nasa", rec.Source)
	}
}

func TestLoadCatalogCSVSkipsMissingTitle(t *testing.T) {
	path := writeCatalog(t, "catalog.csv",
		"uid,title,year\n"+
			"p-001,,2021\n"+
			"p-002,A valid title,2022\n")

	batch, err := LoadCatalogCSV(path, "nasa")
	if err != nil {
		t.Fatalf("LoadCatalogCSV: %v", err)
	}
	if len(batch.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(batch.Records))
	}
	if len(batch.Issues) != 1 {
		t.Errorf("got %d issues %v, want 1 for the skipped row", len(batch.Issues), batch.Issues)
	}
}

func TestLoadCatalogCSVGeneratesUID(t *testing.T) {
	path := writeCatalog(t, "catalog.csv",
		"title\nAn untracked publication\n")

	batch, err := LoadCatalogCSV(path, "nasa")
	if err != nil {
		t.Fatalf("LoadCatalogCSV: %v", err)
	}
	if got := batch.Records[0].UID; got != "nasa_0000" {
		t.Errorf("generated uid = %q, want nasa_0000", got)
	}
}

func TestLoadCatalogCSVBadYear(t *testing.T) {
	path := writeCatalog(t, "catalog.csv",
		"title,year\nSome title,unknown\n")

	batch, err := LoadCatalogCSV(path, "")
	if err != nil {
		t.Fatalf("LoadCatalogCSV: %v", err)
	}
	if batch.Records[0].Year != 0 {
		t.Errorf("year = %d, want 0 for unparseable value", batch.Records[0].Year)
	}
	if len(batch.Issues) != 1 {
		t.Errorf("expected an issue for the bad year, got %v", batch.Issues)
	}
}

func TestLoadCatalogCSVNoTitleColumn(t *testing.T) {
	path := writeCatalog(t, "catalog.csv", "uid,year\np-001,2021\n")
	if _, err := LoadCatalogCSV(path, ""); err == nil {
		t.Fatal("expected error for catalog without a title column")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		seps  []string
		want  []string
	}{
		{"a, b ,c", nil, []string{"a", "b", "c"}},
		{"a; b, c", []string{";"}, []string{"a", "b", "c"}},
		{"", nil, nil},
		{" ,, ", nil, nil},
	}
	for _, tt := range tests {
		got := splitList(tt.input, ",", tt.seps...)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestMatchColumns(t *testing.T) {
	cols := matchColumns([]string{"Record_ID", "Document_Title", " YEAR "})
	if cols["uid"] != 0 {
		t.Errorf("uid column = %d, want 0", cols["uid"])
	}
	if cols["title"] != 1 {
		t.Errorf("title column = %d, want 1", cols["title"])
	}
	if cols["year"] != 2 {
		t.Errorf("year column = %d, want 2", cols["year"])
	}
	if cols["doi"] != -1 {
		t.Errorf("doi column = %d, want -1 for absent field", cols["doi"])
	}
}
