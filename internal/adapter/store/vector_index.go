package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// VectorIndex is an immutable in-memory snapshot of a published index.
// Uses brute-force search; safe for concurrent readers without locking.
type VectorIndex struct {
	meta    domain.IndexMeta
	entries []domain.VectorEntry // indexed by position
	norms   []float64
	chunks  map[string]domain.Chunk
}

// OpenVectorIndex loads the index at path. A missing file yields
// domain.ErrIndexNotFound.
func OpenVectorIndex(path string) (*VectorIndex, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path)
		}
		return nil, err
	}

	db, err := bbolt.Open(path, 0644, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	defer db.Close()

	ix := &VectorIndex{chunks: make(map[string]domain.Chunk)}
	err = db.View(func(tx *bbolt.Tx) error {
		mb := tx.Bucket(bucketMeta)
		if mb == nil {
			return fmt.Errorf("index has no meta bucket")
		}
		raw := mb.Get(keyMeta)
		if raw == nil {
			return fmt.Errorf("index has no metadata")
		}
		if err := json.Unmarshal(raw, &ix.meta); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}

		vb, pb, cb := tx.Bucket(bucketVectors), tx.Bucket(bucketPositions), tx.Bucket(bucketChunks)
		if vb == nil || pb == nil || cb == nil {
			return fmt.Errorf("index is missing buckets")
		}

		// Keys are big-endian positions so the cursor walks them in order.
		return pb.ForEach(func(k, v []byte) error {
			pos := int(binary.BigEndian.Uint64(k))
			if pos != len(ix.entries) {
				return fmt.Errorf("position gap at %d", pos)
			}
			id := string(v)
			vec := vb.Get(k)
			if vec == nil {
				return fmt.Errorf("no vector for position %d", pos)
			}
			var chunk domain.Chunk
			if data := cb.Get(v); data != nil {
				if err := json.Unmarshal(data, &chunk); err != nil {
					return fmt.Errorf("decode chunk %s: %w", id, err)
				}
			}
			ix.entries = append(ix.entries, domain.VectorEntry{Position: pos, ChunkID: id, Vector: decodeVector(vec)})
			ix.chunks[id] = chunk
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", path, err)
	}

	ix.norms = make([]float64, len(ix.entries))
	for i, e := range ix.entries {
		ix.norms[i] = norm(e.Vector)
	}
	return ix, nil
}

func (ix *VectorIndex) Meta() domain.IndexMeta {
	return ix.meta
}

func (ix *VectorIndex) Len() int {
	return len(ix.entries)
}

// Entries returns the entries in position order. Callers must not modify vectors.
func (ix *VectorIndex) Entries() []domain.VectorEntry {
	return ix.entries
}

// Chunk returns the stored chunk for an ID.
func (ix *VectorIndex) Chunk(id string) (domain.Chunk, bool) {
	c, ok := ix.chunks[id]
	return c, ok
}

// Search scores every entry against query and returns the top k, ordered by
// score descending with ties broken by ascending position.
func (ix *VectorIndex) Search(query []float32, k int) ([]domain.RetrievalResult, error) {
	if len(query) != ix.meta.Dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", ix.meta.Dimension, len(query))
	}
	if k <= 0 || len(ix.entries) == 0 {
		return nil, nil
	}

	type scored struct {
		pos   int
		score float64
	}

	qnorm := norm(query)
	scores := make([]scored, len(ix.entries))
	for i, e := range ix.entries {
		var s float64
		if ix.meta.Metric == domain.MetricInnerProduct {
			s = dot(query, e.Vector)
		} else {
			s = cosine(query, e.Vector, qnorm, ix.norms[i])
		}
		scores[i] = scored{pos: e.Position, score: s}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].pos < scores[j].pos
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]domain.RetrievalResult, k)
	for i := 0; i < k; i++ {
		e := ix.entries[scores[i].pos]
		c := ix.chunks[e.ChunkID]
		results[i] = domain.RetrievalResult{
			ChunkID:     e.ChunkID,
			VideoID:     c.VideoID,
			Score:       scores[i].score,
			Text:        c.Text,
			StartOffset: c.StartOffset,
			EndOffset:   c.EndOffset,
			Position:    e.Position,
		}
	}
	return results, nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

// cosine calculates the cosine similarity given precomputed norms.
func cosine(a, b []float32, normA, normB float64) float64 {
	if len(a) != len(b) || normA == 0 || normB == 0 {
		return 0
	}
	return dot(a, b) / (normA * normB)
}
