package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// TranscriptStore keeps one directory per video:
//
//	<root>/<video_id>/Transcript [<video_id>].<lang>.srt
type TranscriptStore struct {
	root  string
	locks *keyedMutex
}

func NewTranscriptStore(root string) *TranscriptStore {
	return &TranscriptStore{root: root, locks: newKeyedMutex()}
}

func (s *TranscriptStore) Root() string {
	return s.root
}

// Path is a pure function of video ID and language.
func (s *TranscriptStore) Path(videoID, lang string) string {
	return filepath.Join(s.root, videoID, fileName(videoID, lang))
}

func fileName(videoID, lang string) string {
	return fmt.Sprintf("Transcript [%s].%s.srt", videoID, lang)
}

// Replace commits text for one language and removes the video's transcripts
// in any other language, so a refetch never leaves a stale sibling behind.
// Writers for the same video are serialized.
func (s *TranscriptStore) Replace(videoID, lang, text string) (string, error) {
	if videoID == "" || lang == "" {
		return "", fmt.Errorf("replace transcript: empty video id or language")
	}

	unlock := s.locks.Lock(videoID)
	defer unlock()

	p := s.Path(videoID, lang)
	if err := WriteFileAtomic(p, []byte(text)); err != nil {
		return "", fmt.Errorf("write transcript %s: %w", videoID, err)
	}

	matches, err := filepath.Glob(filepath.Join(s.root, videoID, "*.srt"))
	if err != nil {
		return p, err
	}
	for _, m := range matches {
		if m == p {
			continue
		}
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return p, fmt.Errorf("remove stale transcript: %w", err)
		}
	}
	return p, nil
}

// Clear removes every committed transcript for a video.
func (s *TranscriptStore) Clear(videoID string) error {
	unlock := s.locks.Lock(videoID)
	defer unlock()

	matches, err := filepath.Glob(filepath.Join(s.root, videoID, "*.srt"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *TranscriptStore) Read(p string) (string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrTranscriptNotStored, p)
		}
		return "", err
	}
	return string(data), nil
}

// Has reports whether any committed transcript exists for the video.
func (s *TranscriptStore) Has(videoID string) bool {
	matches, err := filepath.Glob(filepath.Join(s.root, videoID, "*.srt"))
	return err == nil && len(matches) > 0
}

var transcriptNameRe = regexp.MustCompile(`^Transcript \[(.+)\]\.([A-Za-z0-9_-]+)\.srt$`)

// List returns committed transcripts sorted by video ID then language.
// In-flight temp files never match.
func (s *TranscriptStore) List() ([]domain.StoredTranscript, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return nil, nil
	}

	fsys := os.DirFS(s.root)
	matches, err := doublestar.Glob(fsys, "*/*.srt")
	if err != nil {
		return nil, err
	}

	var out []domain.StoredTranscript
	for _, m := range matches {
		dir, name := path.Split(m)
		sub := transcriptNameRe.FindStringSubmatch(name)
		if sub == nil || sub[1] != path.Clean(dir) {
			continue
		}
		info, err := fs.Stat(fsys, m)
		if err != nil {
			continue
		}
		out = append(out, domain.StoredTranscript{
			VideoID:  sub[1],
			Language: sub[2],
			Path:     filepath.Join(s.root, filepath.FromSlash(m)),
			Size:     info.Size(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].VideoID != out[j].VideoID {
			return out[i].VideoID < out[j].VideoID
		}
		return out[i].Language < out[j].Language
	})
	return out, nil
}

// keyedMutex hands out one mutex per key and drops it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
