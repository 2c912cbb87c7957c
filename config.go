package atlas

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the Atlas engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.atlas/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "atlas".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.atlas/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Chunking
	TargetChars      int `json:"target_chars" yaml:"target_chars"`           // Target chunk size in characters (default 3500)
	OverlapSentences int `json:"overlap_sentences" yaml:"overlap_sentences"` // Trailing sentences carried into the next chunk (default 2)

	// Graph building
	MinEntityFrequency      int     `json:"min_entity_frequency" yaml:"min_entity_frequency"`           // Corpus-wide retention floor (default 2)
	MinRelationshipStrength float64 `json:"min_relationship_strength" yaml:"min_relationship_strength"` // Normalized strength floor (default 0.5)
	Concurrency             int     `json:"concurrency" yaml:"concurrency"`                             // Max parallel document extractions (default 8)

	// Embedding dimension for the vector table. Embeddings themselves are
	// supplied by an external collaborator via Store().InsertEmbedding.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// DefaultConfig returns a Config with the standard pipeline parameters.
// Database is stored in ~/.atlas/atlas.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:                  "atlas",
		StorageDir:              "home",
		TargetChars:             3500,
		OverlapSentences:        2,
		MinEntityFrequency:      2,
		MinRelationshipStrength: 0.5,
		Concurrency:             8,
		EmbeddingDim:            768,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "atlas"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".atlas")
		return filepath.Join(dir, name+".db")
	}
}
