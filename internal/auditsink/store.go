package auditsink

import (
	"context"
	"sync"
	"time"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/auditlog"
)

// DefaultRetention is how many records the sink keeps when none is configured.
const DefaultRetention = 1000

// Entry is a received record plus what the sink knows about its delivery.
type Entry struct {
	ID         string          `json:"id"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Subject    string          `json:"subject,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
	Record     auditlog.Record `json:"record"`
}

// MemoryStore keeps the newest entries up to a retention limit; older ones
// are evicted first.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   []Entry
	retention int
}

func NewMemoryStore(retention int) *MemoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryStore{retention: retention}
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if over := len(s.entries) - s.retention; over > 0 {
		s.entries = append([]Entry(nil), s.entries[over:]...)
	}
	return nil
}

// ListRecent returns up to limit entries, most recent first. A limit of zero
// or less returns everything retained.
func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
