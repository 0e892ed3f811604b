package domain

import "time"

// Similarity metrics supported by the vector index.
const (
	MetricCosine       = "cosine"
	MetricInnerProduct = "inner_product"
)

// VideoRef identifies one candidate video. Identity is ID.
type VideoRef struct {
	ID        string `json:"id"`
	SourceURL string `json:"source_url"`
}

// WatchURL is the canonical watch page for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

type TranscriptRecord struct {
	VideoID     string
	Language    string
	Text        string
	StoragePath string
	Provider    string
	FetchedAt   time.Time
}

// EntryStatus is the outcome recorded for a video in the manifest.
type EntryStatus string

const (
	StatusOK      EntryStatus = "ok"
	StatusFailed  EntryStatus = "failed"
	StatusSkipped EntryStatus = "skipped"
)

// IndexEntry is one line of the transcript manifest.
type IndexEntry struct {
	VideoID     string      `json:"video_id"`
	StoragePath string      `json:"storage_path,omitempty"`
	Language    string      `json:"language,omitempty"`
	Status      EntryStatus `json:"status"`
	Reason      string      `json:"reason,omitempty"`
}

type Chunk struct {
	ID          string `json:"chunk_id"`
	VideoID     string `json:"video_id"`
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// VectorEntry binds a dense position in the index to a chunk.
type VectorEntry struct {
	Position int
	ChunkID  string
	Vector   []float32
}

// IndexMeta describes how a vector index was built.
type IndexMeta struct {
	SchemaVersion int       `json:"schema_version"`
	Model         string    `json:"model"`
	Dimension     int       `json:"dimension"`
	Metric        string    `json:"metric"`
	Count         int       `json:"count"`
	BuiltAt       time.Time `json:"built_at"`
}

type RetrievalResult struct {
	ChunkID     string  `json:"chunk_id"`
	VideoID     string  `json:"video_id"`
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
	StartOffset int     `json:"start_offset"`
	EndOffset   int     `json:"end_offset"`
	Position    int     `json:"position"`
}

// Source cites a video used to ground an answer.
type Source struct {
	VideoID     string `json:"video_id"`
	URL         string `json:"url"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

type AnswerResponse struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Provider string   `json:"provider"`
	TopK     int      `json:"top_k"`
}

// ChunkFailure records a chunk excluded from an index build.
type ChunkFailure struct {
	ChunkID string `json:"chunk_id"`
	Reason  string `json:"reason"`
}

// BuildSummary reports the outcome of a vector index build.
type BuildSummary struct {
	Total    int            `json:"total"`
	Embedded int            `json:"embedded"`
	Reused   int            `json:"reused"`
	Removed  int            `json:"removed"`
	Failed   []ChunkFailure `json:"failed,omitempty"`
}

// IngestSummary reports the outcome of a fetch batch.
type IngestSummary struct {
	RunID   string   `json:"run_id"`
	OK      int      `json:"ok"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Total is the number of videos the batch considered.
func (s IngestSummary) Total() int {
	return s.OK + s.Failed + s.Skipped
}

// AttemptOutcome classifies one provider attempt in the fetch ledger.
type AttemptOutcome string

const (
	OutcomeOK          AttemptOutcome = "ok"
	OutcomeNotFound    AttemptOutcome = "not_found"
	OutcomeRateLimited AttemptOutcome = "rate_limited"
	OutcomeTransient   AttemptOutcome = "transient"
	OutcomeError       AttemptOutcome = "error"
	OutcomeExhausted   AttemptOutcome = "exhausted"
)

// Attempt is one row of the fetch ledger.
type Attempt struct {
	RunID     string
	VideoID   string
	Provider  string
	Language  string
	Outcome   AttemptOutcome
	Reason    string
	Attempted time.Time
}

// StoredTranscript is a committed transcript file in the content store.
type StoredTranscript struct {
	VideoID  string
	Language string
	Path     string
	Size     int64
}
