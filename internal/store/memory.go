package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/draftscan/internal/model"
)

// MemoryStore implements Store in process memory. Baselines do not survive
// a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	baselines map[string]model.Baseline
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{baselines: make(map[string]model.Baseline)}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetBaseline(_ context.Context, documentID string) (*model.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.baselines[documentID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *MemoryStore) SaveBaseline(_ context.Context, documentID, content string) (*model.Baseline, error) {
	b := model.Baseline{
		DocumentID: documentID,
		RevisionID: uuid.New().String(),
		Content:    content,
		SavedAt:    time.Now().UTC(),
	}
	s.mu.Lock()
	s.baselines[documentID] = b
	s.mu.Unlock()
	return &b, nil
}

func (s *MemoryStore) DeleteBaseline(_ context.Context, documentID string) error {
	s.mu.Lock()
	delete(s.baselines, documentID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ListBaselines(context.Context) ([]model.Baseline, error) {
	s.mu.RLock()
	out := make([]model.Baseline, 0, len(s.baselines))
	for _, b := range s.baselines {
		out = append(out, b)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}
