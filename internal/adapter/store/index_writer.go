package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

var (
	bucketMeta      = []byte("meta")
	bucketVectors   = []byte("vectors")   // position -> vector
	bucketPositions = []byte("positions") // position -> chunk_id
	bucketChunks    = []byte("chunks")    // chunk_id -> chunk json
	keyMeta         = []byte("index_meta")
)

// IndexWriter builds a new index into a private temp file. Nothing is visible
// at the published path until Commit renames it into place.
type IndexWriter struct {
	path    string
	tmpPath string
	meta    domain.IndexMeta
	entries []pending
	seen    map[string]struct{}
	done    bool
}

type pending struct {
	chunk  domain.Chunk
	vector []float32
}

// NewIndexWriter prepares a build for the index published at path.
func NewIndexWriter(path, model string, dimension int, metric string) (*IndexWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.building")
	if err != nil {
		return nil, fmt.Errorf("create temp index: %w", err)
	}
	tmp.Close()

	return &IndexWriter{
		path:    path,
		tmpPath: tmp.Name(),
		meta: domain.IndexMeta{
			SchemaVersion: CurrentSchemaVersion,
			Model:         model,
			Dimension:     dimension,
			Metric:        metric,
		},
		seen: make(map[string]struct{}),
	}, nil
}

// Append assigns the next dense position to chunk.
func (w *IndexWriter) Append(chunk domain.Chunk, vector []float32) error {
	if len(vector) != w.meta.Dimension {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", w.meta.Dimension, len(vector))
	}
	if _, dup := w.seen[chunk.ID]; dup {
		return fmt.Errorf("duplicate chunk id %s", chunk.ID)
	}
	w.seen[chunk.ID] = struct{}{}
	w.entries = append(w.entries, pending{chunk: chunk, vector: vector})
	return nil
}

func (w *IndexWriter) Len() int {
	return len(w.entries)
}

// Commit writes vectors, the position mapping and metadata in one transaction,
// then atomically replaces the published index.
func (w *IndexWriter) Commit() (domain.IndexMeta, error) {
	if w.done {
		return domain.IndexMeta{}, fmt.Errorf("index writer already finished")
	}
	w.done = true
	defer os.Remove(w.tmpPath)

	w.meta.Count = len(w.entries)
	w.meta.BuiltAt = time.Now().UTC()

	db, err := bbolt.Open(w.tmpPath, 0644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return domain.IndexMeta{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := make(map[string]*bbolt.Bucket)
		for _, name := range [][]byte{bucketMeta, bucketVectors, bucketPositions, bucketChunks} {
			b, err := tx.CreateBucketIfNotExists(name)
			if err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
			buckets[string(name)] = b
		}

		for pos, e := range w.entries {
			key := positionKey(pos)
			if err := buckets[string(bucketVectors)].Put(key, encodeVector(e.vector)); err != nil {
				return err
			}
			if err := buckets[string(bucketPositions)].Put(key, []byte(e.chunk.ID)); err != nil {
				return err
			}
			data, err := json.Marshal(e.chunk)
			if err != nil {
				return err
			}
			if err := buckets[string(bucketChunks)].Put([]byte(e.chunk.ID), data); err != nil {
				return err
			}
		}

		meta, err := json.Marshal(w.meta)
		if err != nil {
			return err
		}
		return buckets[string(bucketMeta)].Put(keyMeta, meta)
	})
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return domain.IndexMeta{}, fmt.Errorf("write index: %w", err)
	}

	if err := os.Rename(w.tmpPath, w.path); err != nil {
		return domain.IndexMeta{}, fmt.Errorf("publish index: %w", err)
	}
	return w.meta, nil
}

// Abort discards the build; the published index is untouched.
func (w *IndexWriter) Abort() {
	if w.done {
		return
	}
	w.done = true
	os.Remove(w.tmpPath)
}

func positionKey(pos int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(pos))
	return k
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
