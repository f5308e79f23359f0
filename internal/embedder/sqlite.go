package embedder

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/codequery-ai/codequery/pkg/types"
)

const diskCacheSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
	key        TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	vector     BLOB NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// DiskCache persists embeddings in a sqlite database so re-indexing
// unchanged content never repeats an API call across runs.
type DiskCache struct {
	db *sql.DB
}

// OpenDiskCache opens (creating if needed) the cache database at path.
func OpenDiskCache(path string) (*DiskCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open embedding cache: %v", types.ErrEmbedding, err)
	}
	if _, err := db.Exec(diskCacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: initialize embedding cache: %v", types.ErrEmbedding, err)
	}
	return &DiskCache{db: db}, nil
}

// Close releases the database handle.
func (d *DiskCache) Close() error {
	return d.db.Close()
}

// Get looks up a vector by cache key.
func (d *DiskCache) Get(ctx context.Context, key string) ([]float32, bool) {
	var blob []byte
	err := d.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE key = ?`, key).Scan(&blob)
	if err != nil {
		return nil, false
	}
	return decodeVector(blob), true
}

// Put stores a vector under its cache key, replacing any previous entry.
func (d *DiskCache) Put(ctx context.Context, key, model string, vector []float32) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (key, model, vector) VALUES (?, ?, ?)`,
		key, model, encodeVector(vector))
	if err != nil {
		return fmt.Errorf("%w: cache write: %v", types.ErrEmbedding, err)
	}
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
