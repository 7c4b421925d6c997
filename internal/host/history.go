package host

import "sync"

// History tracks recently opened feature codes, most recent first.
type History struct {
	mu       sync.Mutex
	items    []string
	maxItems int
}

// NewHistory creates a history with the given capacity.
func NewHistory(maxItems int) *History {
	if maxItems <= 0 {
		maxItems = 100
	}
	return &History{
		items:    make([]string, 0, maxItems),
		maxItems: maxItems,
	}
}

// Add records an opened feature, moving it to the front.
func (h *History) Add(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, item := range h.items {
		if item == code {
			h.items = append(h.items[:i], h.items[i+1:]...)
			break
		}
	}
	h.items = append([]string{code}, h.items...)
	if len(h.items) > h.maxItems {
		h.items = h.items[:h.maxItems]
	}
}

// Recent returns up to limit codes; limit <= 0 returns all.
func (h *History) Recent(limit int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.items) {
		limit = len(h.items)
	}
	result := make([]string, limit)
	copy(result, h.items[:limit])
	return result
}

// Position returns the recency rank of code (0 = most recent) or -1.
func (h *History) Position(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, item := range h.items {
		if item == code {
			return i
		}
	}
	return -1
}

// Remove drops code from the history.
func (h *History) Remove(code string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, item := range h.items {
		if item == code {
			h.items = append(h.items[:i], h.items[i+1:]...)
			return true
		}
	}
	return false
}
