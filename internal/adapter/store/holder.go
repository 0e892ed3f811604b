package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/metrics"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

type published struct {
	ix  *VectorIndex
	gen uint64
}

// Holder publishes the current index snapshot to concurrent readers.
// Reload swaps in a freshly loaded snapshot; in-flight searches keep the old one.
type Holder struct {
	path string
	cur  atomic.Pointer[published]

	mu       sync.Mutex // serializes reloads
	onReload []func()
}

// NewHolder loads the index at path.
func NewHolder(path string) (*Holder, error) {
	h := &Holder{path: path}
	if err := h.Reload(); err != nil {
		return nil, err
	}
	return h, nil
}

// NewPendingHolder returns a holder with nothing published yet. Searches fail
// with domain.ErrIndexNotFound until a Reload succeeds.
func NewPendingHolder(path string) *Holder {
	return &Holder{path: path}
}

// OnReload registers fn to run after every successful reload.
func (h *Holder) OnReload(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}

func (h *Holder) Reload() error {
	ix, err := OpenVectorIndex(h.path)
	if err != nil {
		return fmt.Errorf("reload index: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.cur.Store(&published{ix: ix, gen: h.Generation() + 1})
	metrics.IncrIndexReload()
	for _, fn := range h.onReload {
		fn()
	}
	return nil
}

// Current returns the published snapshot with its generation. Callers that
// need both must use this rather than separate calls, which may straddle a reload.
func (h *Holder) Current() (port.VectorSearcher, uint64, error) {
	p := h.cur.Load()
	if p == nil {
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, h.path)
	}
	return p.ix, p.gen, nil
}

// Generation increments on every successful reload. It is zero until the
// first snapshot is published.
func (h *Holder) Generation() uint64 {
	if p := h.cur.Load(); p != nil {
		return p.gen
	}
	return 0
}

// Snapshot returns the published index, or nil before the first reload.
func (h *Holder) Snapshot() *VectorIndex {
	if p := h.cur.Load(); p != nil {
		return p.ix
	}
	return nil
}

func (h *Holder) Meta() domain.IndexMeta {
	if ix := h.Snapshot(); ix != nil {
		return ix.Meta()
	}
	return domain.IndexMeta{}
}

func (h *Holder) Len() int {
	if ix := h.Snapshot(); ix != nil {
		return ix.Len()
	}
	return 0
}
