package enumerator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/fs"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// recordSchema accepts both the current {id, source_url} records and the
// legacy {video_id, url} ones.
const recordSchema = `{
  "type": "object",
  "properties": {
    "id":         {"type": "string", "pattern": "^[A-Za-z0-9_-]+$"},
    "video_id":   {"type": "string", "pattern": "^[A-Za-z0-9_-]+$"},
    "source_url": {"type": "string"},
    "url":        {"type": ["string", "null"]}
  },
  "anyOf": [{"required": ["id"]}, {"required": ["video_id"]}]
}`

var schemaLoader = gojsonschema.NewStringLoader(recordSchema)

// LoadList reads a JSONL video list. Records failing validation are skipped
// with a warning; unparseable lines are an error.
func LoadList(path string) ([]domain.VideoRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var refs []domain.VideoRef
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		var rec map[string]any
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", domain.ErrInvalidVideoRecord, path, line, err)
		}
		if problems, err := validate(rec); err != nil {
			return nil, err
		} else if len(problems) > 0 {
			slog.Warn("skipping invalid video record",
				slog.String("path", path), slog.Int("line", line), slog.String("problems", strings.Join(problems, "; ")))
			continue
		}
		refs = append(refs, toRef(rec))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return Dedup(refs), nil
}

func validate(rec map[string]any) ([]string, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(rec))
	if err != nil {
		return nil, fmt.Errorf("validate video record: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return problems, nil
}

func toRef(rec map[string]any) domain.VideoRef {
	str := func(k string) string {
		s, _ := rec[k].(string)
		return s
	}
	id := str("id")
	if id == "" {
		id = str("video_id")
	}
	u := str("source_url")
	if u == "" {
		u = str("url")
	}
	if u == "" {
		u = domain.WatchURL(id)
	}
	return domain.VideoRef{ID: id, SourceURL: u}
}

// SaveList writes refs as JSONL, atomically.
func SaveList(path string, refs []domain.VideoRef) error {
	return fs.WriteJSONL(path, refs)
}
