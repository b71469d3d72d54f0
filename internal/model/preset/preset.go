package preset

// Defaults returns the quick-pick questions offered beside the free-form
// input. Order matters: the frontend renders buttons in this order.
func Defaults() []string {
	return []string{
		"How can I be happy?",
		"What should I eat for health?",
		"Why is exercise important?",
		"How to make new friends?",
		"How to study better?",
		"How to save money?",
		"How to be kind to others?",
	}
}

// Store exposes the preset catalogue to handlers and the session service.
type Store interface {
	List() []string
	Contains(question string) bool
}

// MemoryStore implements Store with a fixed in-memory list.
type MemoryStore struct {
	items []string
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied questions.
func NewMemoryStore(items []string) *MemoryStore {
	return &MemoryStore{items: append([]string(nil), items...)}
}

// List returns the preset questions in display order.
func (s *MemoryStore) List() []string {
	return append([]string(nil), s.items...)
}

// Contains reports whether question is one of the presets.
func (s *MemoryStore) Contains(question string) bool {
	for _, item := range s.items {
		if item == question {
			return true
		}
	}
	return false
}
