package detector

import "sync"

// Table maps document ids to their last saved text. Presence matters, not
// content: an empty saved text is still a baseline.
type Table struct {
	mu    sync.RWMutex
	saved map[string]string
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{saved: make(map[string]string)}
}

// Set records text as the saved state of id.
func (t *Table) Set(id, text string) {
	t.mu.Lock()
	t.saved[id] = text
	t.mu.Unlock()
}

// SetIfAbsent records text only when id has no saved state yet. It reports
// whether it stored anything.
func (t *Table) SetIfAbsent(id, text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.saved[id]; ok {
		return false
	}
	t.saved[id] = text
	return true
}

// Get returns the saved state of id.
func (t *Table) Get(id string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	text, ok := t.saved[id]
	return text, ok
}

// Delete forgets id.
func (t *Table) Delete(id string) {
	t.mu.Lock()
	delete(t.saved, id)
	t.mu.Unlock()
}

// Len returns the number of documents with a saved state.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.saved)
}
