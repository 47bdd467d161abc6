// Package config provides the configuration model for the ingest service.
//
// Configuration is a single JSON document naming the storage backend and the
// runtime tunables. Decoding and validation are separate steps so tooling can
// lint a config without a database on hand.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Storage names the backing database.
type Storage struct {
	// Kind selects the backend: "postgres" or "sqlite".
	Kind string `json:"kind"`

	// DSN is the backend connection string: a pgx URL for postgres, a file
	// path for sqlite.
	DSN string `json:"dsn"`
}

// Runtime carries the ingest tunables. Zero values fall back to the
// package defaults of the reader and loader.
type Runtime struct {
	// ChunkRows bounds the number of data rows read from a file per chunk.
	ChunkRows int `json:"chunk_rows"`

	// InsertBatch bounds the number of rows per insert statement.
	InsertBatch int `json:"insert_batch"`
}

// Config is the root configuration document.
type Config struct {
	Storage Storage `json:"storage"`
	Runtime Runtime `json:"runtime"`
}

// Load reads and decodes a JSON config file. It does not validate; callers
// run Validate and decide how to surface issues.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}
